package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"quiz-pilot/internal/cache"
	"quiz-pilot/internal/config"
	"quiz-pilot/internal/domain"
	"quiz-pilot/internal/util"

	"go.uber.org/zap"
)

const progressTTL = 24 * time.Hour

// ProgressKey is the Redis hash holding live progress of a run.
func ProgressKey(runID string) string {
	return cache.GenerateCacheKey("run", "progress", runID)
}

// PipelineService drives Extract → Solve → Submit until the quiz ends.
type PipelineService struct {
	extractor domain.Extractor
	solver    domain.Solver
	submitter domain.Submitter
	repo      domain.RunRepository
	tx        domain.TransactionManager
	progress  domain.Cache
	cfg       config.PipelineConfig
	logger    *zap.Logger
}

// NewPipelineService creates a pipeline. repo, tx and progress are optional;
// without them steps are not persisted.
func NewPipelineService(
	extractor domain.Extractor,
	solver domain.Solver,
	submitter domain.Submitter,
	repo domain.RunRepository,
	tx domain.TransactionManager,
	progress domain.Cache,
	cfg config.PipelineConfig,
	logger *zap.Logger,
) *PipelineService {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 20
	}
	return &PipelineService{
		extractor: extractor,
		solver:    solver,
		submitter: submitter,
		repo:      repo,
		tx:        tx,
		progress:  progress,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run follows the quiz from req.URL. The returned summary is non-nil even
// when err is set.
func (s *PipelineService) Run(ctx context.Context, req domain.RunRequest) (*domain.RunSummary, error) {
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	summary := &domain.RunSummary{RunID: req.RunID}
	log := s.logger.With(zap.String("run_id", req.RunID))
	currentURL := req.URL

	for currentURL != "" {
		if summary.Steps >= s.cfg.MaxSteps {
			log.Warn("Stopping run at step limit",
				zap.Int("max_steps", s.cfg.MaxSteps), zap.String("pending_url", currentURL))
			break
		}
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("run stopped before step %d: %w", summary.Steps+1, err)
		}

		step := &domain.RunStep{
			ID:        util.NewULID(),
			RunID:     req.RunID,
			Index:     summary.Steps,
			URL:       currentURL,
			CreatedAt: time.Now(),
		}
		summary.Steps++
		summary.LastURL = currentURL
		log.Info("Starting step", zap.Int("step", step.Index+1), zap.String("url", currentURL))

		next, err := s.runStep(ctx, req, step)
		s.recordStep(ctx, step)
		if err != nil {
			return summary, err
		}

		summary.Answered += len(step.Answers)
		for _, r := range step.Submissions {
			if r.Correct {
				summary.Correct++
			}
		}
		currentURL = next
	}

	log.Info("Run finished",
		zap.Int("steps", summary.Steps),
		zap.Int("answered", summary.Answered),
		zap.Int("correct", summary.Correct))
	return summary, nil
}

func (s *PipelineService) runStep(ctx context.Context, req domain.RunRequest, step *domain.RunStep) (string, error) {
	extraction, err := s.extractor.Extract(ctx, step.URL)
	if err != nil {
		step.Error = err.Error()
		return "", err
	}
	step.TaskType = extraction.TaskType
	step.QuestionCount = len(extraction.Questions)

	answers, err := s.solver.Solve(ctx, extraction)
	if err != nil {
		step.Error = err.Error()
		return "", err
	}
	if len(answers) != len(extraction.Questions) {
		err := domain.NewInternalError(
			fmt.Sprintf("solver returned %d answers for %d questions", len(answers), len(extraction.Questions)), nil)
		step.Error = err.Error()
		return "", err
	}
	step.Answers = answers

	step.Submissions = s.submitter.SubmitAll(ctx, req.Email, req.Secret, extraction.Questions, answers)
	step.NextURL = domain.NextURLFrom(step.Submissions)
	step.Correct = len(step.Submissions) > 0
	for _, r := range step.Submissions {
		if !r.Correct {
			step.Correct = false
		}
	}
	return step.NextURL, nil
}

// recordStep persists the step and refreshes live progress. Persistence
// failures are logged and do not fail the run.
func (s *PipelineService) recordStep(ctx context.Context, step *domain.RunStep) {
	if step.RunID == "" {
		return
	}
	// Persist even when the run context has expired.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if s.repo != nil {
		if err := s.persistStep(storeCtx, step); err != nil {
			s.logger.Error("Failed to persist run step",
				zap.String("run_id", step.RunID), zap.Int("step", step.Index), zap.Error(err))
		}
	}

	if s.progress != nil {
		key := ProgressKey(step.RunID)
		fields := map[string]string{
			"step":        strconv.Itoa(step.Index + 1),
			"url":         step.URL,
			"task_type":   string(step.TaskType),
			"questions":   strconv.Itoa(step.QuestionCount),
			"next_url":    step.NextURL,
			"last_error":  step.Error,
			"updated_at":  time.Now().UTC().Format(time.RFC3339),
			"all_correct": strconv.FormatBool(step.Correct),
		}
		if err := s.progress.HSetWithTTL(storeCtx, key, fields, progressTTL); err != nil {
			s.logger.Warn("Failed to update run progress", zap.String("run_id", step.RunID), zap.Error(err))
		}
	}
}

func (s *PipelineService) persistStep(ctx context.Context, step *domain.RunStep) error {
	save := func(ctx context.Context) error {
		if err := s.repo.AddStep(ctx, step); err != nil {
			return err
		}
		run, err := s.repo.GetByID(ctx, step.RunID)
		if err != nil {
			return err
		}
		if run == nil {
			return domain.NewRunNotFoundError(step.RunID)
		}
		run.StepCount = step.Index + 1
		run.UpdatedAt = time.Now()
		return s.repo.Update(ctx, run)
	}
	if s.tx == nil {
		return save(ctx)
	}
	return s.tx.WithTransaction(ctx, save)
}

// IsRunCanceled reports whether err came from the run deadline or cancellation.
func IsRunCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
