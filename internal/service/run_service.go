package service

import (
	"context"
	"errors"
	"strings"

	"quiz-pilot/internal/domain"
	"quiz-pilot/internal/dto"

	"go.uber.org/zap"
)

const (
	DefaultRunListLimit = 20
	MaxRunListLimit     = 100
)

// RunEnqueuer accepts runs for background execution.
type RunEnqueuer interface {
	Enqueue(ctx context.Context, req domain.RunRequest) (*domain.Run, error)
}

// RunService backs the HTTP and CLI surfaces.
type RunService interface {
	StartRun(ctx context.Context, req dto.CreateRunRequest) (*dto.CreateRunResponse, error)
	ListRuns(ctx context.Context, limit int) (*dto.RunListResponse, error)
	GetRun(ctx context.Context, id string) (*dto.RunResponse, error)
	PreviewExtraction(ctx context.Context, pageURL string) (*dto.ExtractResponse, error)
}

type runServiceImpl struct {
	runs      RunEnqueuer
	repo      domain.RunRepository
	progress  domain.Cache
	extractor domain.Extractor
	auth      AuthService
	logger    *zap.Logger
}

// NewRunService creates a RunService. progress may be nil.
func NewRunService(runs RunEnqueuer, repo domain.RunRepository, progress domain.Cache, extractor domain.Extractor, auth AuthService, logger *zap.Logger) RunService {
	return &runServiceImpl{
		runs:      runs,
		repo:      repo,
		progress:  progress,
		extractor: extractor,
		auth:      auth,
		logger:    logger,
	}
}

func (s *runServiceImpl) StartRun(ctx context.Context, req dto.CreateRunRequest) (*dto.CreateRunResponse, error) {
	if !s.auth.VerifyStudentSecret(req.Secret) {
		s.logger.Warn("run rejected: secret mismatch", zap.String("email", req.Email))
		return nil, domain.NewForbiddenError("invalid secret")
	}

	run, err := s.runs.Enqueue(ctx, domain.RunRequest{
		Email:  req.Email,
		Secret: req.Secret,
		URL:    req.URL,
	})
	if err != nil {
		return nil, err
	}

	return &dto.CreateRunResponse{
		RunID:      run.ID,
		Status:     string(run.Status),
		InitialURL: run.InitialURL,
	}, nil
}

func (s *runServiceImpl) ListRuns(ctx context.Context, limit int) (*dto.RunListResponse, error) {
	if limit <= 0 {
		limit = DefaultRunListLimit
	}
	if limit > MaxRunListLimit {
		limit = MaxRunListLimit
	}

	runs, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, domain.NewInternalError("failed to list runs", err)
	}

	resp := &dto.RunListResponse{Runs: make([]dto.RunResponse, 0, len(runs))}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, toRunResponse(run))
	}
	resp.Count = len(resp.Runs)
	return resp, nil
}

func (s *runServiceImpl) GetRun(ctx context.Context, id string) (*dto.RunResponse, error) {
	id = strings.TrimSpace(id)
	run, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewInternalError("failed to load run", err)
	}
	if run == nil {
		return nil, domain.NewRunNotFoundError(id)
	}

	steps, err := s.repo.ListSteps(ctx, id)
	if err != nil {
		return nil, domain.NewInternalError("failed to load run steps", err)
	}

	resp := toRunResponse(run)
	resp.Steps = make([]dto.RunStepResponse, 0, len(steps))
	for _, step := range steps {
		resp.Steps = append(resp.Steps, toRunStepResponse(step))
	}
	resp.Progress = s.loadProgress(ctx, id)
	return &resp, nil
}

// loadProgress is best effort; a missing or unreachable cache yields nil.
func (s *runServiceImpl) loadProgress(ctx context.Context, runID string) map[string]string {
	if s.progress == nil {
		return nil
	}
	progress, err := s.progress.HGetAll(ctx, ProgressKey(runID))
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.Warn("failed to read run progress", zap.String("run_id", runID), zap.Error(err))
		}
		return nil
	}
	return progress
}

func (s *runServiceImpl) PreviewExtraction(ctx context.Context, pageURL string) (*dto.ExtractResponse, error) {
	result, err := s.extractor.Extract(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	resp := &dto.ExtractResponse{
		URL:       result.StartURL,
		TaskType:  string(result.TaskType),
		Pages:     make([]string, 0, len(result.Pages)),
		Questions: make([]dto.QuestionResponse, 0, len(result.Questions)),
	}
	for _, p := range result.Pages {
		resp.Pages = append(resp.Pages, p.URL)
	}
	for _, q := range result.Questions {
		qr := dto.QuestionResponse{
			ID:        q.ID,
			Text:      q.Text,
			Options:   q.Options,
			SubmitURL: q.SubmitURL,
		}
		for _, m := range q.Media {
			qr.Attachments = append(qr.Attachments, dto.AttachmentSummary{
				URL:      m.SourceURL,
				Kind:     string(m.Kind),
				Filename: m.Filename,
				HasText:  m.Text != "",
				Error:    m.Error,
			})
		}
		resp.Questions = append(resp.Questions, qr)
	}
	return resp, nil
}

func toRunResponse(run *domain.Run) dto.RunResponse {
	return dto.RunResponse{
		ID:         run.ID,
		Email:      run.Email,
		InitialURL: run.InitialURL,
		Status:     string(run.Status),
		Error:      run.Error,
		StepCount:  run.StepCount,
		CreatedAt:  run.CreatedAt,
		UpdatedAt:  run.UpdatedAt,
		FinishedAt: run.FinishedAt,
	}
}

func toRunStepResponse(step *domain.RunStep) dto.RunStepResponse {
	resp := dto.RunStepResponse{
		Index:         step.Index,
		URL:           step.URL,
		TaskType:      string(step.TaskType),
		QuestionCount: step.QuestionCount,
		Correct:       step.Correct,
		NextURL:       step.NextURL,
		Error:         step.Error,
		Answers:       make([]dto.AnswerResponse, 0, len(step.Answers)),
		Submissions:   make([]dto.SubmissionResponse, 0, len(step.Submissions)),
		CreatedAt:     step.CreatedAt,
	}
	for _, a := range step.Answers {
		resp.Answers = append(resp.Answers, dto.AnswerResponse{
			QuestionID: a.QuestionID,
			Answer:     a.Answer,
			Reasoning:  a.Reasoning,
			Error:      a.Error,
		})
	}
	for _, sub := range step.Submissions {
		resp.Submissions = append(resp.Submissions, dto.SubmissionResponse{
			QuestionID: sub.QuestionID,
			Correct:    sub.Correct,
			NextURL:    sub.NextURL,
			Reason:     sub.Reason,
			StatusCode: sub.StatusCode,
			Error:      sub.Error,
		})
	}
	return resp
}
