package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"quiz-pilot/internal/config"
	"quiz-pilot/internal/database"
	"quiz-pilot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunDatabaseAdapter_SQLite(t *testing.T) {
	db, err := database.Open(&config.Config{DB: config.DBConfig{
		Driver: database.DriverSQLite,
		DSN:    "file:" + filepath.Join(t.TempDir(), "runs.db"),
	}})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.RunMigrations(db, zap.NewNop()))

	ctx := context.Background()
	repo := NewRunDatabaseAdapter(db)
	tm := NewTransactionManagerAdapter(db)

	first := domain.NewRun("01HZX0000000000000000000A1", "a@example.com", "https://quiz.example.com/a")
	first.CreatedAt = time.Now().Add(-time.Minute)
	second := domain.NewRun("01HZX0000000000000000000B2", "b@example.com", "https://quiz.example.com/b")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	err = tm.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repo.AddStep(ctx, &domain.RunStep{
			ID:            "01HZX0000000000000000STEP1",
			RunID:         first.ID,
			URL:           first.InitialURL,
			TaskType:      domain.TaskCompute,
			QuestionCount: 1,
			Answers:       []domain.AnswerRecord{{QuestionID: "q1", Answer: float64(7)}},
			Submissions:   []domain.SubmissionResult{{QuestionID: "q1", Correct: true}},
			Correct:       true,
		}); err != nil {
			return err
		}
		first.StepCount = 1
		first.Finish(time.Now(), nil)
		return repo.Update(ctx, first)
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.RunStatusCompleted, got.Status)
	assert.Equal(t, 1, got.StepCount)
	assert.NotNil(t, got.FinishedAt)

	steps, err := repo.ListSteps(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.True(t, steps[0].Correct)
	assert.Equal(t, float64(7), steps[0].Answers[0].Answer)
	assert.True(t, steps[0].Submissions[0].Correct)

	runs, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)

	missing, err := repo.GetByID(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	// A failing transaction leaves no step behind.
	rollback := errors.New("rollback")
	err = tm.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repo.AddStep(ctx, &domain.RunStep{ID: "01HZX0000000000000000STEP2", RunID: second.ID, URL: second.InitialURL}); err != nil {
			return err
		}
		return rollback
	})
	assert.ErrorIs(t, err, rollback)
	steps, err = repo.ListSteps(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, steps)
}
