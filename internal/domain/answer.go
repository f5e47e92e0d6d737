package domain

import (
	"encoding/json"
	"fmt"
)

// AnswerRecord is the solver's answer to one QuestionRecord.
type AnswerRecord struct {
	QuestionID string      `json:"question_id"`
	Answer     interface{} `json:"answer"`
	Reasoning  string      `json:"reasoning,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// AnswerString renders the answer for form fields and logs.
func (a AnswerRecord) AnswerString() string {
	switch v := a.Answer.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%t", v)
	}
	b, err := json.Marshal(a.Answer)
	if err != nil {
		return fmt.Sprint(a.Answer)
	}
	return string(b)
}

// SubmissionResult is the platform's verdict on one submitted answer.
type SubmissionResult struct {
	QuestionID string `json:"question_id"`
	Correct    bool   `json:"correct"`
	NextURL    string `json:"next_url,omitempty"`
	Reason     string `json:"reason,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NextURLFrom returns the last non-empty next URL in submission order.
func NextURLFrom(results []SubmissionResult) string {
	next := ""
	for _, r := range results {
		if r.NextURL != "" {
			next = r.NextURL
		}
	}
	return next
}
