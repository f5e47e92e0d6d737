package domain

import "context"

// PageFetcher returns the raw HTML of a page without executing scripts.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// PageRenderer returns the HTML of a page after client-side rendering.
type PageRenderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// MediaDownloader stores a referenced file locally.
type MediaDownloader interface {
	Download(ctx context.Context, fileURL string) (*Attachment, error)
}

// TextReader converts a local file (PDF, spreadsheet, image) to plain text.
type TextReader interface {
	ReadText(ctx context.Context, localPath string) (string, error)
}

// Transcriber converts a local audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, localPath string) (string, error)
}

// LLM sends a prompt to a language model and returns its raw reply.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ScriptExecutor runs a generated program and returns its decoded answer.
type ScriptExecutor interface {
	Execute(ctx context.Context, script string) (interface{}, error)
}

// Submission is one answer addressed to the platform.
type Submission struct {
	Email    string
	Secret   string
	Question *QuestionRecord
	Answer   AnswerRecord
}

// AnswerSubmitter delivers one answer and reports the platform verdict.
type AnswerSubmitter interface {
	Submit(ctx context.Context, sub Submission) (*SubmissionResult, error)
}

// Extractor turns a quiz URL into structured questions.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (*ExtractionResult, error)
}

// Solver answers every question of an extraction, in order.
type Solver interface {
	Solve(ctx context.Context, result *ExtractionResult) ([]AnswerRecord, error)
}

// Submitter submits answers in order.
type Submitter interface {
	SubmitAll(ctx context.Context, email, secret string, questions []*QuestionRecord, answers []AnswerRecord) []SubmissionResult
}

// RunRepository persists runs and their steps.
// GetByID returns (nil, nil) when the run does not exist.
type RunRepository interface {
	Create(ctx context.Context, run *Run) error
	Update(ctx context.Context, run *Run) error
	GetByID(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, limit int) ([]*Run, error)
	AddStep(ctx context.Context, step *RunStep) error
	ListSteps(ctx context.Context, runID string) ([]*RunStep, error)
}

// TransactionManager runs fn inside a database transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
