package service

import (
	"context"
	"sync"
	"time"

	"quiz-pilot/internal/domain"

	"github.com/stretchr/testify/mock"
)

// --- MockLLM ---
type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// --- MockForgettingLLM ---
type MockForgettingLLM struct {
	MockLLM
}

func (m *MockForgettingLLM) Forget(ctx context.Context, prompt string) error {
	args := m.Called(ctx, prompt)
	return args.Error(0)
}

// --- MockScriptExecutor ---
type MockScriptExecutor struct {
	mock.Mock
}

func (m *MockScriptExecutor) Execute(ctx context.Context, script string) (interface{}, error) {
	args := m.Called(ctx, script)
	return args.Get(0), args.Error(1)
}

// --- MockAnswerSubmitter ---
type MockAnswerSubmitter struct {
	mock.Mock
}

func (m *MockAnswerSubmitter) Submit(ctx context.Context, sub domain.Submission) (*domain.SubmissionResult, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubmissionResult), args.Error(1)
}

// --- MockExtractor ---
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, pageURL string) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, pageURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}

// --- MockSolver ---
type MockSolver struct {
	mock.Mock
}

func (m *MockSolver) Solve(ctx context.Context, result *domain.ExtractionResult) ([]domain.AnswerRecord, error) {
	args := m.Called(ctx, result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AnswerRecord), args.Error(1)
}

// --- MockSubmitter ---
type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) SubmitAll(ctx context.Context, email, secret string, questions []*domain.QuestionRecord, answers []domain.AnswerRecord) []domain.SubmissionResult {
	args := m.Called(ctx, email, secret, questions, answers)
	return args.Get(0).([]domain.SubmissionResult)
}

// --- MockRunRepository ---
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) Create(ctx context.Context, run *domain.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunRepository) Update(ctx context.Context, run *domain.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunRepository) GetByID(ctx context.Context, id string) (*domain.Run, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Run), args.Error(1)
}

func (m *MockRunRepository) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Run), args.Error(1)
}

func (m *MockRunRepository) AddStep(ctx context.Context, step *domain.RunStep) error {
	args := m.Called(ctx, step)
	return args.Error(0)
}

func (m *MockRunRepository) ListSteps(ctx context.Context, runID string) ([]*domain.RunStep, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RunStep), args.Error(1)
}

// --- MockTransactionManager ---
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

// --- MockCache ---
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) SetNX(ctx context.Context, key string, value string, expiration time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, expiration)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockCache) HSetWithTTL(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	args := m.Called(ctx, key, fields, ttl)
	return args.Error(0)
}

// scriptedLLM replays replies in order and records every prompt.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	prompts []string
}

func (s *scriptedLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return s.replies[len(s.replies)-1], nil
}

// --- MockRunEnqueuer ---
type MockRunEnqueuer struct {
	mock.Mock
}

func (m *MockRunEnqueuer) Enqueue(ctx context.Context, req domain.RunRequest) (*domain.Run, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Run), args.Error(1)
}
