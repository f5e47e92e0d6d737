package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"quiz-pilot/internal/domain"
	"quiz-pilot/internal/repository/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRunTestDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

var runRowColumns = []string{"id", "email", "initial_url", "status", "error_message", "step_count", "created_at", "updated_at", "finished_at"}

func TestRunConverters(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	finished := now.Add(time.Minute)
	run := &domain.Run{
		ID:         "01HZXRUN",
		Email:      "student@example.com",
		InitialURL: "https://quiz.example.com/1",
		Status:     domain.RunStatusFailed,
		Error:      "extraction failed",
		StepCount:  2,
		CreatedAt:  now,
		UpdatedAt:  now,
		FinishedAt: &finished,
	}

	model := fromDomainRun(run)
	assert.True(t, model.ErrorMessage.Valid)
	assert.True(t, model.FinishedAt.Valid)

	back := toDomainRun(model)
	if diff := cmp.Diff(run, back); diff != "" {
		t.Errorf("run round trip mismatch (-want +got):\n%s", diff)
	}

	run.Error = ""
	run.FinishedAt = nil
	model = fromDomainRun(run)
	assert.False(t, model.ErrorMessage.Valid)
	assert.False(t, model.FinishedAt.Valid)
	assert.Nil(t, toDomainRun(model).FinishedAt)

	assert.Nil(t, fromDomainRun(nil))
	assert.Nil(t, toDomainRun(nil))
}

func TestRunStepConverters(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	step := &domain.RunStep{
		ID:            "01HZXSTEP",
		RunID:         "01HZXRUN",
		Index:         1,
		URL:           "https://quiz.example.com/2",
		TaskType:      domain.TaskCSV,
		QuestionCount: 1,
		Answers:       []domain.AnswerRecord{{QuestionID: "q1", Answer: "42", Reasoning: "sum"}},
		Submissions:   []domain.SubmissionResult{{QuestionID: "q1", Correct: true, NextURL: "https://quiz.example.com/3"}},
		Correct:       true,
		NextURL:       "https://quiz.example.com/3",
		CreatedAt:     now,
	}

	model, err := fromDomainRunStep(step)
	require.NoError(t, err)
	assert.Equal(t, 1, model.Correct)
	assert.Equal(t, 1, model.StepIndex)
	assert.False(t, model.ErrorMessage.Valid)
	assert.Contains(t, model.Answers.String, `"question_id":"q1"`)

	back, err := toDomainRunStep(model)
	require.NoError(t, err)
	if diff := cmp.Diff(step, back); diff != "" {
		t.Errorf("step round trip mismatch (-want +got):\n%s", diff)
	}

	_, err = toDomainRunStep(&models.RunStep{Answers: sql.NullString{String: "{broken", Valid: true}})
	assert.Error(t, err)
}

func TestRunDatabaseAdapter_Create(t *testing.T) {
	db, mock := setupRunTestDB(t)
	defer db.Close()
	repo := NewRunDatabaseAdapter(db)

	run := domain.NewRun("01HZXRUN", "student@example.com", "https://quiz.example.com/1")

	mock.ExpectExec(`INSERT INTO runs \(id, email, initial_url, status, error_message, step_count, created_at, updated_at, finished_at\)`).
		WithArgs(run.ID, run.Email, run.InitialURL, "queued", nil, 0, sqlmock.AnyArg(), sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunDatabaseAdapter_Update(t *testing.T) {
	db, mock := setupRunTestDB(t)
	defer db.Close()
	repo := NewRunDatabaseAdapter(db)

	run := domain.NewRun("01HZXRUN", "student@example.com", "https://quiz.example.com/1")
	run.Finish(time.Now(), errors.New("boom"))

	mock.ExpectExec(`UPDATE runs SET`).
		WithArgs("failed", "boom", 0, sqlmock.AnyArg(), sqlmock.AnyArg(), run.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), run))

	mock.ExpectExec(`UPDATE runs SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Update(context.Background(), run)
	assert.True(t, domain.IsCode(err, domain.CodeRunNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunDatabaseAdapter_GetByID(t *testing.T) {
	db, mock := setupRunTestDB(t)
	defer db.Close()
	repo := NewRunDatabaseAdapter(db)
	now := time.Now().Truncate(time.Second)

	rows := sqlmock.NewRows(runRowColumns).
		AddRow("01HZXRUN", "student@example.com", "https://quiz.example.com/1", "completed", nil, 3, now, now, now)
	mock.ExpectQuery(`SELECT .+ FROM runs WHERE id = \?`).
		WithArgs("01HZXRUN").
		WillReturnRows(rows)

	run, err := repo.GetByID(context.Background(), "01HZXRUN")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Equal(t, 3, run.StepCount)
	require.NotNil(t, run.FinishedAt)
	assert.True(t, now.Equal(*run.FinishedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunDatabaseAdapter_GetByID_NotFound(t *testing.T) {
	db, mock := setupRunTestDB(t)
	defer db.Close()
	repo := NewRunDatabaseAdapter(db)

	mock.ExpectQuery(`SELECT .+ FROM runs WHERE id = \?`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	run, err := repo.GetByID(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, run)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunDatabaseAdapter_List(t *testing.T) {
	db, mock := setupRunTestDB(t)
	defer db.Close()
	repo := NewRunDatabaseAdapter(db)
	now := time.Now().Truncate(time.Second)

	rows := sqlmock.NewRows(runRowColumns).
		AddRow("02", "b@example.com", "https://quiz.example.com/b", "running", nil, 1, now, now, nil).
		AddRow("01", "a@example.com", "https://quiz.example.com/a", "failed", "timeout", 0, now.Add(-time.Hour), now, now)
	mock.ExpectQuery(`SELECT .+ FROM runs ORDER BY created_at DESC, id DESC LIMIT \?`).
		WithArgs(20).
		WillReturnRows(rows)

	runs, err := repo.List(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "02", runs[0].ID)
	assert.Nil(t, runs[0].FinishedAt)
	assert.Equal(t, "timeout", runs[1].Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunDatabaseAdapter_Steps(t *testing.T) {
	db, mock := setupRunTestDB(t)
	defer db.Close()
	repo := NewRunDatabaseAdapter(db)
	now := time.Now().Truncate(time.Second)

	step := &domain.RunStep{
		ID:            "01HZXSTEP",
		RunID:         "01HZXRUN",
		URL:           "https://quiz.example.com/1",
		TaskType:      domain.TaskGeneric,
		QuestionCount: 1,
		Answers:       []domain.AnswerRecord{{QuestionID: "q1", Answer: "yes"}},
		CreatedAt:     now,
	}
	mock.ExpectExec(`INSERT INTO run_steps`).
		WithArgs(step.ID, step.RunID, 0, step.URL, "generic", 1, sqlmock.AnyArg(), 0, nil, nil, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.AddStep(context.Background(), step))

	encoded, err := step.EncodeAnswers()
	require.NoError(t, err)
	rows := sqlmock.NewRows([]string{"id", "run_id", "step_index", "url", "task_type", "question_count", "answers", "correct", "next_url", "error_message", "created_at"}).
		AddRow(step.ID, step.RunID, 0, step.URL, "generic", 1, encoded, 0, nil, nil, now)
	mock.ExpectQuery(`SELECT .+ FROM run_steps WHERE run_id = \? ORDER BY step_index`).
		WithArgs(step.RunID).
		WillReturnRows(rows)

	steps, err := repo.ListSteps(context.Background(), step.RunID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "yes", steps[0].Answers[0].Answer)
	assert.Equal(t, domain.TaskGeneric, steps[0].TaskType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManagerAdapter_WithTransaction(t *testing.T) {
	db, mock := setupRunTestDB(t)
	defer db.Close()
	tm := NewTransactionManagerAdapter(db)
	repo := NewRunDatabaseAdapter(db)
	run := domain.NewRun("01HZXRUN", "", "https://quiz.example.com/1")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := tm.WithTransaction(context.Background(), func(ctx context.Context) error {
		_, isTx := GetExecutor(ctx, db).(*sqlx.Tx)
		assert.True(t, isTx)
		return repo.Create(ctx, run)
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	sentinel := errors.New("abort")
	err = tm.WithTransaction(context.Background(), func(ctx context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	mock.ExpectBegin()
	mock.ExpectRollback()
	assert.PanicsWithValue(t, "boom", func() {
		_ = tm.WithTransaction(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})

	mock.ExpectBegin()
	mock.ExpectCommit()
	err = tm.WithTransaction(context.Background(), func(outer context.Context) error {
		return tm.WithTransaction(outer, func(inner context.Context) error {
			assert.Same(t, GetExecutor(outer, db), GetExecutor(inner, db))
			return nil
		})
	})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
