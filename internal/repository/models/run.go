package models

import (
	"database/sql"
	"time"
)

// Run is a row of the runs table.
type Run struct {
	ID           string         `db:"id"`            // ULID
	Email        string         `db:"email"`         // student the run submits for
	InitialURL   string         `db:"initial_url"`   // first quiz page
	Status       string         `db:"status"`        // queued, running, completed, failed
	ErrorMessage sql.NullString `db:"error_message"` // terminal error, if any
	StepCount    int            `db:"step_count"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	FinishedAt   sql.NullTime   `db:"finished_at"`
}

// RunStep is a row of the run_steps table.
type RunStep struct {
	ID            string         `db:"id"`
	RunID         string         `db:"run_id"`
	StepIndex     int            `db:"step_index"`
	URL           string         `db:"url"`
	TaskType      sql.NullString `db:"task_type"`
	QuestionCount int            `db:"question_count"`
	Answers       sql.NullString `db:"answers"` // JSON document of answers and submissions
	Correct       int            `db:"correct"` // 0 or 1
	NextURL       sql.NullString `db:"next_url"`
	ErrorMessage  sql.NullString `db:"error_message"`
	CreatedAt     time.Time      `db:"created_at"`
}

func (Run) TableName() string {
	return "runs"
}

func (RunStep) TableName() string {
	return "run_steps"
}
