package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"quiz-pilot/internal/domain"

	"github.com/titanous/json5"
	"go.uber.org/zap"
)

const (
	StrategyDirect = "direct"
	StrategyScript = "script"

	errNoAnswerProduced = "no answer produced"
)

// promptForgetter is implemented by caching LLM clients so a rejected reply
// is not served again.
type promptForgetter interface {
	Forget(ctx context.Context, prompt string) error
}

// SolverService produces one AnswerRecord per QuestionRecord.
type SolverService struct {
	llm         domain.LLM
	executor    domain.ScriptExecutor
	strategy    string
	maxAttempts int
	logger      *zap.Logger
}

// NewSolverService creates a solver. executor is only used by the script
// strategy and may be nil otherwise.
func NewSolverService(llm domain.LLM, executor domain.ScriptExecutor, strategy string, maxAttempts int, logger *zap.Logger) *SolverService {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if strategy == "" {
		strategy = StrategyDirect
	}
	return &SolverService{
		llm:         llm,
		executor:    executor,
		strategy:    strategy,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Solve returns answers in question order, one per question.
func (s *SolverService) Solve(ctx context.Context, result *domain.ExtractionResult) ([]domain.AnswerRecord, error) {
	if len(result.Questions) == 0 {
		return []domain.AnswerRecord{}, nil
	}
	if s.strategy == StrategyScript && s.executor != nil {
		return s.solveWithScripts(ctx, result)
	}
	return s.solveDirect(ctx, result)
}

func (s *SolverService) solveDirect(ctx context.Context, result *domain.ExtractionResult) ([]domain.AnswerRecord, error) {
	basePrompt := BuildDirectPrompt(result)
	prompt := basePrompt

	known := make(map[string]bool, len(result.Questions))
	for _, q := range result.Questions {
		known[q.ID] = true
	}

	collected := map[string]domain.AnswerRecord{}
	providerFailures := 0
	var lastProviderErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		s.logger.Info("Calling LLM", zap.Int("attempt", attempt), zap.Int("max_attempts", s.maxAttempts))

		reply, err := s.llm.Complete(ctx, prompt)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, domain.NewLLMServiceError(ctxErr)
			}
			providerFailures++
			lastProviderErr = err
			s.logger.Warn("LLM call failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		answers, err := ParseAnswerResponse(reply)
		if err != nil {
			s.logger.Warn("LLM reply rejected", zap.Int("attempt", attempt), zap.Error(err))
			s.forget(ctx, prompt)
			prompt = basePrompt + RetryFeedback(err.Error())
			continue
		}

		for _, a := range answers {
			if known[a.QuestionID] {
				collected[a.QuestionID] = a
			}
		}

		missing := missingQuestionIDs(result.Questions, collected)
		if len(missing) == 0 {
			break
		}
		s.logger.Warn("LLM reply is incomplete", zap.Int("attempt", attempt), zap.Strings("missing", missing))
		s.forget(ctx, prompt)
		prompt = basePrompt + RetryFeedback("no answer for "+strings.Join(missing, ", "))
	}

	if providerFailures == s.maxAttempts {
		return nil, domain.NewLLMServiceError(lastProviderErr)
	}

	out := make([]domain.AnswerRecord, 0, len(result.Questions))
	for _, q := range result.Questions {
		a, ok := collected[q.ID]
		if !ok {
			out = append(out, domain.AnswerRecord{QuestionID: q.ID, Error: errNoAnswerProduced})
			continue
		}
		a.Answer = NormalizeOptionAnswer(q, a.Answer)
		out = append(out, a)
	}
	return out, nil
}

func (s *SolverService) solveWithScripts(ctx context.Context, result *domain.ExtractionResult) ([]domain.AnswerRecord, error) {
	out := make([]domain.AnswerRecord, 0, len(result.Questions))
	allProviderFailures := true
	var lastProviderErr error

	for _, q := range result.Questions {
		record, providerErr := s.solveQuestionWithScript(ctx, result, q)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, domain.NewLLMServiceError(ctxErr)
		}
		if providerErr != nil {
			lastProviderErr = providerErr
		} else {
			allProviderFailures = false
		}
		out = append(out, record)
	}

	if allProviderFailures {
		return nil, domain.NewLLMServiceError(lastProviderErr)
	}
	return out, nil
}

// solveQuestionWithScript returns a non-nil error only when every attempt
// failed at the provider.
func (s *SolverService) solveQuestionWithScript(ctx context.Context, result *domain.ExtractionResult, q *domain.QuestionRecord) (domain.AnswerRecord, error) {
	basePrompt := BuildScriptPrompt(result, q)
	prompt := basePrompt
	record := domain.AnswerRecord{QuestionID: q.ID, Error: errNoAnswerProduced}
	providerFailures := 0
	var lastProviderErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		reply, err := s.llm.Complete(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return record, ctx.Err()
			}
			providerFailures++
			lastProviderErr = err
			s.logger.Warn("LLM call failed", zap.String("question_id", q.ID), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		body, err := ExtractPythonBody(reply)
		if err != nil {
			s.logger.Warn("Generated code rejected", zap.String("question_id", q.ID), zap.Error(err))
			s.forget(ctx, prompt)
			prompt = basePrompt + RetryFeedback(err.Error())
			continue
		}

		script, err := BuildScript(result, q, body)
		if err != nil {
			record.Error = err.Error()
			return record, nil
		}

		answer, err := s.executor.Execute(ctx, script)
		if err != nil {
			scriptErr := domain.NewScriptError("generated script failed", err)
			s.logger.Warn("Generated script failed", zap.String("question_id", q.ID), zap.Error(scriptErr))
			record.Error = scriptErr.Error()
			s.forget(ctx, prompt)
			prompt = basePrompt + RetryFeedback("the script failed with: "+err.Error())
			continue
		}

		return domain.AnswerRecord{
			QuestionID: q.ID,
			Answer:     NormalizeOptionAnswer(q, answer),
			Reasoning:  "computed by generated script",
		}, nil
	}

	if providerFailures == s.maxAttempts {
		record.Error = lastProviderErr.Error()
		return record, lastProviderErr
	}
	return record, nil
}

func (s *SolverService) forget(ctx context.Context, prompt string) {
	f, ok := s.llm.(promptForgetter)
	if !ok {
		return
	}
	if err := f.Forget(ctx, prompt); err != nil {
		s.logger.Debug("Failed to drop cached LLM reply", zap.Error(err))
	}
}

func missingQuestionIDs(questions []*domain.QuestionRecord, collected map[string]domain.AnswerRecord) []string {
	var missing []string
	for _, q := range questions {
		if _, ok := collected[q.ID]; !ok {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

type answerEnvelope struct {
	Answers []struct {
		QuestionID string      `json:"question_id"`
		Answer     interface{} `json:"answer"`
		Reasoning  string      `json:"reasoning"`
	} `json:"answers"`
}

// ParseAnswerResponse extracts the answers object from an LLM reply,
// tolerating reasoning blocks, code fences and JSON5 syntax.
func ParseAnswerResponse(reply string) ([]domain.AnswerRecord, error) {
	cleaned := CleanLLMResponse(reply)
	if cleaned == "" {
		return nil, errors.New("reply contains no JSON object")
	}

	var envelope answerEnvelope
	if err := json.Unmarshal([]byte(cleaned), &envelope); err != nil {
		if err5 := json5.Unmarshal([]byte(cleaned), &envelope); err5 != nil {
			return nil, fmt.Errorf("reply is not valid JSON: %w", err)
		}
	}
	if len(envelope.Answers) == 0 {
		return nil, errors.New(`reply has no "answers" entries`)
	}

	answers := make([]domain.AnswerRecord, 0, len(envelope.Answers))
	for _, a := range envelope.Answers {
		id := strings.TrimSpace(a.QuestionID)
		if id == "" {
			continue
		}
		answers = append(answers, domain.AnswerRecord{
			QuestionID: id,
			Answer:     a.Answer,
			Reasoning:  a.Reasoning,
		})
	}
	return answers, nil
}

// CleanLLMResponse drops <think> blocks and returns the text between the
// first '{' and the last '}'.
func CleanLLMResponse(reply string) string {
	if thinkStart := strings.Index(reply, "<think>"); thinkStart != -1 {
		if thinkEnd := strings.Index(reply, "</think>"); thinkEnd > thinkStart {
			reply = reply[:thinkStart] + reply[thinkEnd+len("</think>"):]
		}
	}
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end <= start {
		return ""
	}
	return reply[start : end+1]
}
