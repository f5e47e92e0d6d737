package dto

import "time"

// CreateRunRequest triggers a quiz run.
type CreateRunRequest struct {
	Email  string `json:"email" example:"student@example.com"`
	Secret string `json:"secret" example:"s3cret"`
	URL    string `json:"url" example:"https://quiz.example.com/quiz/1"`
}

// CreateRunResponse acknowledges a queued run.
type CreateRunResponse struct {
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	InitialURL string `json:"initial_url"`
}

// Phase1Request is the compatibility trigger body.
type Phase1Request struct {
	URL string `json:"url" example:"https://quiz.example.com/quiz/1"`
}

// Phase1Response mirrors the legacy worker acknowledgement.
type Phase1Response struct {
	Status     string `json:"status"`
	InitialURL string `json:"initial_url"`
}

// RunResponse represents a run in API responses.
type RunResponse struct {
	ID         string            `json:"id"`
	Email      string            `json:"email"`
	InitialURL string            `json:"initial_url"`
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	StepCount  int               `json:"step_count"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Steps      []RunStepResponse `json:"steps,omitempty"`
	Progress   map[string]string `json:"progress,omitempty"`
}

// RunStepResponse is one recorded step.
type RunStepResponse struct {
	Index         int                  `json:"index"`
	URL           string               `json:"url"`
	TaskType      string               `json:"task_type"`
	QuestionCount int                  `json:"question_count"`
	Correct       bool                 `json:"correct"`
	NextURL       string               `json:"next_url,omitempty"`
	Error         string               `json:"error,omitempty"`
	Answers       []AnswerResponse     `json:"answers"`
	Submissions   []SubmissionResponse `json:"submissions"`
	CreatedAt     time.Time            `json:"created_at"`
}

// AnswerResponse is a solved answer.
type AnswerResponse struct {
	QuestionID string      `json:"question_id"`
	Answer     interface{} `json:"answer"`
	Reasoning  string      `json:"reasoning,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// SubmissionResponse is the grader's verdict for one answer.
type SubmissionResponse struct {
	QuestionID string `json:"question_id"`
	Correct    bool   `json:"correct"`
	NextURL    string `json:"next_url,omitempty"`
	Reason     string `json:"reason,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RunListResponse wraps a page of runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// ExtractRequest asks for a synchronous extraction preview.
type ExtractRequest struct {
	URL string `json:"url" example:"https://quiz.example.com/quiz/1"`
}

// ExtractResponse is the extraction preview.
type ExtractResponse struct {
	URL       string             `json:"url"`
	TaskType  string             `json:"task_type"`
	Pages     []string           `json:"pages"`
	Questions []QuestionResponse `json:"questions"`
}

// QuestionResponse is one extracted question.
type QuestionResponse struct {
	ID          string              `json:"id"`
	Text        string              `json:"text"`
	Options     []string            `json:"options,omitempty"`
	SubmitURL   string              `json:"submit_url,omitempty"`
	Attachments []AttachmentSummary `json:"attachments,omitempty"`
}

// AttachmentSummary omits attachment contents.
type AttachmentSummary struct {
	URL      string `json:"url"`
	Kind     string `json:"kind"`
	Filename string `json:"filename,omitempty"`
	HasText  bool   `json:"has_text"`
	Error    string `json:"error,omitempty"`
}

// HealthResponse reports dependency status.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
