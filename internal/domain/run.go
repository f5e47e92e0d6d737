package domain

import (
	"encoding/json"
	"time"
)

// RunStatus tracks a run through queued → running → completed | failed.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Run is one traversal of a multi-step quiz.
type Run struct {
	ID         string
	Email      string
	InitialURL string
	Status     RunStatus
	Error      string
	StepCount  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt *time.Time
	Steps      []*RunStep
}

// NewRun creates a queued run.
func NewRun(id, email, initialURL string) *Run {
	now := time.Now()
	return &Run{
		ID:         id,
		Email:      email,
		InitialURL: initialURL,
		Status:     RunStatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Validate validates the run
func (r *Run) Validate() error {
	if r.ID == "" {
		return NewValidationError("run ID is required")
	}
	if r.InitialURL == "" {
		return NewValidationError("initial URL is required")
	}
	return nil
}

// MarkRunning moves a queued run to running.
func (r *Run) MarkRunning(now time.Time) {
	r.Status = RunStatusRunning
	r.UpdatedAt = now
}

// Finish records the terminal state of the run. A nil err completes it.
func (r *Run) Finish(now time.Time, err error) {
	if err != nil {
		r.Status = RunStatusFailed
		r.Error = err.Error()
	} else {
		r.Status = RunStatusCompleted
	}
	r.UpdatedAt = now
	r.FinishedAt = &now
}

// RunStep records one Extract → Solve → Submit pass.
type RunStep struct {
	ID            string
	RunID         string
	Index         int
	URL           string
	TaskType      TaskType
	QuestionCount int
	Answers       []AnswerRecord
	Submissions   []SubmissionResult
	Correct       bool
	NextURL       string
	Error         string
	CreatedAt     time.Time
}

// stepPayload is the JSON document stored in run_steps.answers.
type stepPayload struct {
	Answers     []AnswerRecord     `json:"answers"`
	Submissions []SubmissionResult `json:"submissions"`
}

// EncodeAnswers serialises answers and submissions for storage.
func (s *RunStep) EncodeAnswers() (string, error) {
	b, err := json.Marshal(stepPayload{Answers: s.Answers, Submissions: s.Submissions})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeAnswers restores answers and submissions from storage.
func (s *RunStep) DecodeAnswers(raw string) error {
	if raw == "" {
		return nil
	}
	var payload stepPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return err
	}
	s.Answers = payload.Answers
	s.Submissions = payload.Submissions
	return nil
}

// RunRequest starts a run for one student.
type RunRequest struct {
	RunID  string
	Email  string
	Secret string
	URL    string
}

// RunSummary is the outcome of Pipeline.Run.
type RunSummary struct {
	RunID    string
	Steps    int
	LastURL  string
	Correct  int
	Answered int
}
