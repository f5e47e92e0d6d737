package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"quiz-pilot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func twoQuestionResult() *domain.ExtractionResult {
	return &domain.ExtractionResult{
		StartURL: "https://quiz.example.com/q/1",
		TaskType: domain.TaskGeneric,
		Questions: []*domain.QuestionRecord{
			{ID: "q1", Index: 0, PageURL: "https://quiz.example.com/q/1", Text: "Capital of France?", Options: []string{"Berlin", "Paris", "Rome"}},
			{ID: "q2", Index: 1, PageURL: "https://quiz.example.com/q/1", Text: "2 + 2?", Options: []string{}},
		},
	}
}

func TestParseAnswerResponse(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    []domain.AnswerRecord
		wantErr bool
	}{
		{
			name:  "plain JSON",
			reply: `{"answers":[{"question_id":"q1","answer":"Paris","reasoning":"capital"}]}`,
			want:  []domain.AnswerRecord{{QuestionID: "q1", Answer: "Paris", Reasoning: "capital"}},
		},
		{
			name:  "think block and code fence",
			reply: "<think>let me {think}</think>\n```json\n{\"answers\":[{\"question_id\":\"q2\",\"answer\":4}]}\n```",
			want:  []domain.AnswerRecord{{QuestionID: "q2", Answer: float64(4)}},
		},
		{
			name:  "json5 with trailing comma and unquoted keys",
			reply: `Here you go: {answers: [{question_id: "q1", answer: "Paris",}],}`,
			want:  []domain.AnswerRecord{{QuestionID: "q1", Answer: "Paris"}},
		},
		{
			name:    "no object",
			reply:   "I cannot answer that.",
			wantErr: true,
		},
		{
			name:    "empty answers",
			reply:   `{"answers":[]}`,
			wantErr: true,
		},
		{
			name:    "broken JSON",
			reply:   `{"answers":[{"question_id":"q1",`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnswerResponse(tt.reply)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSolverService_Solve_DirectSuccess(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		`{"answers":[{"question_id":"q2","answer":4,"reasoning":"sum"},{"question_id":"q1","answer":"B","reasoning":"capital"}]}`,
	}}
	solver := NewSolverService(llm, nil, StrategyDirect, 3, zap.NewNop())

	answers, err := solver.Solve(context.Background(), twoQuestionResult())

	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, "q1", answers[0].QuestionID)
	assert.Equal(t, "Paris", answers[0].Answer)
	assert.Equal(t, "q2", answers[1].QuestionID)
	assert.Equal(t, float64(4), answers[1].Answer)
	assert.Len(t, llm.prompts, 1)
}

func TestSolverService_Solve_RetriesInvalidOutput(t *testing.T) {
	llm := &MockForgettingLLM{}
	result := twoQuestionResult()
	basePrompt := BuildDirectPrompt(result)

	llm.On("Complete", mock.Anything, basePrompt).Return("not json at all", nil).Once()
	llm.On("Forget", mock.Anything, basePrompt).Return(nil).Once()
	llm.On("Complete", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.HasPrefix(p, basePrompt) && strings.Contains(p, "previous reply was rejected")
	})).Return(`{"answers":[{"question_id":"q1","answer":"Paris"},{"question_id":"q2","answer":4}]}`, nil).Once()

	solver := NewSolverService(llm, nil, StrategyDirect, 3, zap.NewNop())
	answers, err := solver.Solve(context.Background(), result)

	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Empty(t, answers[0].Error)
	assert.Empty(t, answers[1].Error)
	llm.AssertExpectations(t)
	llm.AssertNumberOfCalls(t, "Complete", 2)
}

func TestSolverService_Solve_MergesPartialReplies(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		`{"answers":[{"question_id":"q1","answer":"Paris"}]}`,
		`{"answers":[{"question_id":"q2","answer":4}]}`,
	}}
	solver := NewSolverService(llm, nil, StrategyDirect, 3, zap.NewNop())

	answers, err := solver.Solve(context.Background(), twoQuestionResult())

	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, "Paris", answers[0].Answer)
	assert.Equal(t, float64(4), answers[1].Answer)
	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[1], "no answer for q2")
}

func TestSolverService_Solve_MissingAnswerAfterLastAttempt(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		`{"answers":[{"question_id":"q1","answer":"Paris"},{"question_id":"q9","answer":"ignored"}]}`,
	}}
	solver := NewSolverService(llm, nil, StrategyDirect, 2, zap.NewNop())

	answers, err := solver.Solve(context.Background(), twoQuestionResult())

	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, "q1", answers[0].QuestionID)
	assert.Empty(t, answers[0].Error)
	assert.Equal(t, "q2", answers[1].QuestionID)
	assert.Nil(t, answers[1].Answer)
	assert.Equal(t, "no answer produced", answers[1].Error)
	assert.Len(t, llm.prompts, 2)
}

func TestSolverService_Solve_AllProviderErrors(t *testing.T) {
	llm := &MockLLM{}
	llm.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("429 rate limited"))

	solver := NewSolverService(llm, nil, StrategyDirect, 3, zap.NewNop())
	answers, err := solver.Solve(context.Background(), twoQuestionResult())

	assert.Nil(t, answers)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeLLMServiceError))
	assert.Contains(t, err.Error(), "429 rate limited")
	llm.AssertNumberOfCalls(t, "Complete", 3)
}

func TestSolverService_Solve_ProviderErrorThenSuccess(t *testing.T) {
	llm := &scriptedLLM{
		errs:    []error{errors.New("timeout")},
		replies: []string{"", `{"answers":[{"question_id":"q1","answer":"Paris"},{"question_id":"q2","answer":4}]}`},
	}
	solver := NewSolverService(llm, nil, StrategyDirect, 3, zap.NewNop())

	answers, err := solver.Solve(context.Background(), twoQuestionResult())

	require.NoError(t, err)
	assert.Len(t, answers, 2)
	assert.Len(t, llm.prompts, 2)
}

func TestSolverService_Solve_NoQuestions(t *testing.T) {
	llm := &MockLLM{}
	solver := NewSolverService(llm, nil, StrategyDirect, 3, zap.NewNop())

	answers, err := solver.Solve(context.Background(), &domain.ExtractionResult{StartURL: "https://quiz.example.com"})

	require.NoError(t, err)
	assert.Empty(t, answers)
	llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestSolverService_Solve_ScriptStrategy(t *testing.T) {
	result := twoQuestionResult()
	llm := &MockLLM{}
	exec := &MockScriptExecutor{}

	llm.On("Complete", mock.Anything, BuildScriptPrompt(result, result.Questions[0])).
		Return("#PYTHON_START\nfinal_answer = 'Paris'\n#PYTHON_END", nil).Once()
	llm.On("Complete", mock.Anything, BuildScriptPrompt(result, result.Questions[1])).
		Return("#PYTHON_START\nfinal_answer = 2 + 2\n#PYTHON_END", nil).Once()

	exec.On("Execute", mock.Anything, mock.MatchedBy(func(s string) bool {
		return strings.Contains(s, "final_answer = 'Paris'")
	})).Return("Paris", nil).Once()
	exec.On("Execute", mock.Anything, mock.MatchedBy(func(s string) bool {
		return strings.Contains(s, "final_answer = 2 + 2")
	})).Return(nil, errors.New("exit status 1")).Once()

	solver := NewSolverService(llm, exec, StrategyScript, 1, zap.NewNop())
	answers, err := solver.Solve(context.Background(), result)

	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, "Paris", answers[0].Answer)
	assert.Empty(t, answers[0].Error)
	assert.Equal(t, "q2", answers[1].QuestionID)
	assert.Contains(t, answers[1].Error, "exit status 1")
	llm.AssertExpectations(t)
	exec.AssertExpectations(t)
}

func TestSolverService_Solve_ScriptRejectsUnsupportedLibrary(t *testing.T) {
	result := twoQuestionResult()
	result.Questions = result.Questions[:1]
	llm := &scriptedLLM{replies: []string{
		"#PYTHON_START\nimport camelot\nfinal_answer = 1\n#PYTHON_END",
		"#PYTHON_START\nfinal_answer = 'Paris'\n#PYTHON_END",
	}}
	exec := &MockScriptExecutor{}
	exec.On("Execute", mock.Anything, mock.Anything).Return("Paris", nil).Once()

	solver := NewSolverService(llm, exec, StrategyScript, 3, zap.NewNop())
	answers, err := solver.Solve(context.Background(), result)

	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "Paris", answers[0].Answer)
	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[1], `unsupported library "camelot"`)
}

func TestSolverService_Solve_ScriptAllProviderErrors(t *testing.T) {
	llm := &MockLLM{}
	llm.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("unavailable"))

	solver := NewSolverService(llm, &MockScriptExecutor{}, StrategyScript, 2, zap.NewNop())
	_, err := solver.Solve(context.Background(), twoQuestionResult())

	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeLLMServiceError))
}

func TestCleanLLMResponse(t *testing.T) {
	assert.Equal(t, `{"a":1}`, CleanLLMResponse("<think>{ignored}</think>noise {\"a\":1} trailing"))
	assert.Equal(t, "", CleanLLMResponse("no braces"))
}
