package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quiz-pilot/internal/domain"
	"quiz-pilot/internal/repository/models"
	"quiz-pilot/internal/util"

	"github.com/jmoiron/sqlx"
)

const runColumns = `
		id "id",
		email "email",
		initial_url "initial_url",
		status "status",
		error_message "error_message",
		step_count "step_count",
		created_at "created_at",
		updated_at "updated_at",
		finished_at "finished_at"`

const runStepColumns = `
		id "id",
		run_id "run_id",
		step_index "step_index",
		url "url",
		task_type "task_type",
		question_count "question_count",
		answers "answers",
		correct "correct",
		next_url "next_url",
		error_message "error_message",
		created_at "created_at"`

// RunDatabaseAdapter implements domain.RunRepository using sqlx.DB. Queries
// run on the transaction stored in the context when there is one.
type RunDatabaseAdapter struct {
	db *sqlx.DB
}

// NewRunDatabaseAdapter creates a new instance of RunDatabaseAdapter
func NewRunDatabaseAdapter(db *sqlx.DB) domain.RunRepository {
	return &RunDatabaseAdapter{db: db}
}

// Create implements domain.RunRepository
func (a *RunDatabaseAdapter) Create(ctx context.Context, run *domain.Run) error {
	query := `INSERT INTO runs (id, email, initial_url, status, error_message, step_count, created_at, updated_at, finished_at)
	VALUES (:id, :email, :initial_url, :status, :error_message, :step_count, :created_at, :updated_at, :finished_at)`

	if _, err := GetExecutor(ctx, a.db).NamedExecContext(ctx, query, fromDomainRun(run)); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// Update implements domain.RunRepository
func (a *RunDatabaseAdapter) Update(ctx context.Context, run *domain.Run) error {
	query := `UPDATE runs SET
		status = :status,
		error_message = :error_message,
		step_count = :step_count,
		updated_at = :updated_at,
		finished_at = :finished_at
	WHERE id = :id`

	result, err := GetExecutor(ctx, a.db).NamedExecContext(ctx, query, fromDomainRun(run))
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.NewRunNotFoundError(run.ID)
	}
	return nil
}

// GetByID implements domain.RunRepository. Steps are not loaded.
func (a *RunDatabaseAdapter) GetByID(ctx context.Context, id string) (*domain.Run, error) {
	var row models.Run
	query := a.db.Rebind(`SELECT` + runColumns + `
	FROM runs
	WHERE id = ?`)

	if err := GetExecutor(ctx, a.db).GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run by ID: %w", err)
	}
	return toDomainRun(&row), nil
}

// List implements domain.RunRepository, newest first.
func (a *RunDatabaseAdapter) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	query := `SELECT` + runColumns + `
	FROM runs
	ORDER BY created_at DESC, id DESC
	` + a.limitClause()

	var rows []models.Run
	if err := GetExecutor(ctx, a.db).SelectContext(ctx, &rows, a.db.Rebind(query), limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]*domain.Run, 0, len(rows))
	for i := range rows {
		runs = append(runs, toDomainRun(&rows[i]))
	}
	return runs, nil
}

// AddStep implements domain.RunRepository
func (a *RunDatabaseAdapter) AddStep(ctx context.Context, step *domain.RunStep) error {
	row, err := fromDomainRunStep(step)
	if err != nil {
		return fmt.Errorf("failed to encode run step: %w", err)
	}

	query := `INSERT INTO run_steps (id, run_id, step_index, url, task_type, question_count, answers, correct, next_url, error_message, created_at)
	VALUES (:id, :run_id, :step_index, :url, :task_type, :question_count, :answers, :correct, :next_url, :error_message, :created_at)`

	if _, err := GetExecutor(ctx, a.db).NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to add run step: %w", err)
	}
	return nil
}

// ListSteps implements domain.RunRepository, in step order.
func (a *RunDatabaseAdapter) ListSteps(ctx context.Context, runID string) ([]*domain.RunStep, error) {
	query := a.db.Rebind(`SELECT` + runStepColumns + `
	FROM run_steps
	WHERE run_id = ?
	ORDER BY step_index`)

	var rows []models.RunStep
	if err := GetExecutor(ctx, a.db).SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, fmt.Errorf("failed to list run steps: %w", err)
	}

	steps := make([]*domain.RunStep, 0, len(rows))
	for i := range rows {
		step, err := toDomainRunStep(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("failed to decode run step %s: %w", rows[i].ID, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func (a *RunDatabaseAdapter) limitClause() string {
	if a.db.DriverName() == "oracle" {
		return "FETCH FIRST ? ROWS ONLY"
	}
	return "LIMIT ?"
}

func toDomainRun(m *models.Run) *domain.Run {
	if m == nil {
		return nil
	}
	return &domain.Run{
		ID:         m.ID,
		Email:      m.Email,
		InitialURL: m.InitialURL,
		Status:     domain.RunStatus(m.Status),
		Error:      m.ErrorMessage.String,
		StepCount:  m.StepCount,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		FinishedAt: util.NullTimeToPtr(m.FinishedAt),
	}
}

func fromDomainRun(r *domain.Run) *models.Run {
	if r == nil {
		return nil
	}
	updatedAt := r.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	return &models.Run{
		ID:           r.ID,
		Email:        r.Email,
		InitialURL:   r.InitialURL,
		Status:       string(r.Status),
		ErrorMessage: util.StringToNullString(r.Error),
		StepCount:    r.StepCount,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    updatedAt,
		FinishedAt:   util.TimePtrToNullTime(r.FinishedAt),
	}
}

func toDomainRunStep(m *models.RunStep) (*domain.RunStep, error) {
	step := &domain.RunStep{
		ID:            m.ID,
		RunID:         m.RunID,
		Index:         m.StepIndex,
		URL:           m.URL,
		TaskType:      domain.TaskType(m.TaskType.String),
		QuestionCount: m.QuestionCount,
		Correct:       m.Correct != 0,
		NextURL:       m.NextURL.String,
		Error:         m.ErrorMessage.String,
		CreatedAt:     m.CreatedAt,
	}
	if err := step.DecodeAnswers(m.Answers.String); err != nil {
		return nil, err
	}
	return step, nil
}

func fromDomainRunStep(s *domain.RunStep) (*models.RunStep, error) {
	answers, err := s.EncodeAnswers()
	if err != nil {
		return nil, err
	}
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return &models.RunStep{
		ID:            s.ID,
		RunID:         s.RunID,
		StepIndex:     s.Index,
		URL:           s.URL,
		TaskType:      util.StringToNullString(string(s.TaskType)),
		QuestionCount: s.QuestionCount,
		Answers:       util.StringToNullString(answers),
		Correct:       util.BoolToInt(s.Correct),
		NextURL:       util.StringToNullString(s.NextURL),
		ErrorMessage:  util.StringToNullString(s.Error),
		CreatedAt:     createdAt,
	}, nil
}
