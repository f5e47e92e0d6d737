package submitter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"quiz-pilot/internal/domain"
	"quiz-pilot/internal/util"

	"github.com/go-resty/resty/v2"
)

type submitPayload struct {
	Email  string      `json:"email"`
	Secret string      `json:"secret"`
	URL    string      `json:"url"`
	Answer interface{} `json:"answer"`
}

type submitResponse struct {
	Correct bool   `json:"correct"`
	URL     string `json:"url"`
	Reason  string `json:"reason"`
}

// HTTPSubmitter posts answers as JSON to the evaluator endpoint.
type HTTPSubmitter struct {
	client *resty.Client
}

func NewHTTPSubmitter(client *resty.Client) *HTTPSubmitter {
	return &HTTPSubmitter{client: client}
}

func (s *HTTPSubmitter) Submit(ctx context.Context, sub domain.Submission) (*domain.SubmissionResult, error) {
	q := sub.Question
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(submitPayload{
			Email:  sub.Email,
			Secret: sub.Secret,
			URL:    q.PageURL,
			Answer: sub.Answer.Answer,
		}).
		Post(q.SubmitURL)
	if err != nil {
		return nil, domain.NewSubmissionError(q.SubmitURL, err)
	}

	result := &domain.SubmissionResult{
		QuestionID: q.ID,
		StatusCode: resp.StatusCode(),
	}

	var body submitResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		snippet := util.Truncate(strings.TrimSpace(resp.String()), 200)
		return result, domain.NewSubmissionError(q.SubmitURL,
			fmt.Errorf("non-JSON response (status %d): %s", resp.StatusCode(), snippet))
	}

	result.Correct = body.Correct
	result.NextURL = body.URL
	result.Reason = body.Reason
	return result, nil
}
