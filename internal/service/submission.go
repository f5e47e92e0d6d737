package service

import (
	"context"

	"quiz-pilot/internal/domain"

	"go.uber.org/zap"
)

// SubmissionService submits answers one by one through an AnswerSubmitter.
type SubmissionService struct {
	submitter domain.AnswerSubmitter
	logger    *zap.Logger
}

func NewSubmissionService(submitter domain.AnswerSubmitter, logger *zap.Logger) *SubmissionService {
	return &SubmissionService{submitter: submitter, logger: logger}
}

// SubmitAll attempts every answer in question order. Failures are recorded on
// the corresponding result and never stop later submissions.
func (s *SubmissionService) SubmitAll(ctx context.Context, email, secret string, questions []*domain.QuestionRecord, answers []domain.AnswerRecord) []domain.SubmissionResult {
	byID := make(map[string]*domain.QuestionRecord, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	results := make([]domain.SubmissionResult, 0, len(answers))
	for i, answer := range answers {
		q, ok := byID[answer.QuestionID]
		if !ok && i < len(questions) {
			q = questions[i]
		}
		if q == nil {
			results = append(results, domain.SubmissionResult{
				QuestionID: answer.QuestionID,
				Error:      "unknown question",
			})
			continue
		}

		if answer.Error != "" {
			s.logger.Warn("Submitting question without a solved answer",
				zap.String("question_id", q.ID), zap.String("solver_error", answer.Error))
		}

		res, err := s.submitter.Submit(ctx, domain.Submission{
			Email:    email,
			Secret:   secret,
			Question: q,
			Answer:   answer,
		})
		if res == nil {
			res = &domain.SubmissionResult{}
		}
		res.QuestionID = q.ID
		if err != nil {
			res.Correct = false
			res.NextURL = ""
			res.Error = err.Error()
			s.logger.Warn("Submission failed",
				zap.String("question_id", q.ID),
				zap.String("submit_url", q.SubmitURL),
				zap.Error(err))
		} else {
			s.logger.Info("Answer submitted",
				zap.String("question_id", q.ID),
				zap.Bool("correct", res.Correct),
				zap.String("next_url", res.NextURL),
				zap.String("reason", res.Reason))
		}
		results = append(results, *res)
	}
	return results
}
