package memory

import (
	"context"

	"trivia-session-service/internal/domain"
)

// StaticQuestionSource serves a fixed question set, ignoring token and
// filters (useful for tests/demos).
type StaticQuestionSource struct {
	questions []domain.Question
	err       error
}

func NewStaticQuestionSource(questions []domain.Question) *StaticQuestionSource {
	return &StaticQuestionSource{questions: questions}
}

// NewFailingQuestionSource always reports err, for exercising the fetch
// classification paths.
func NewFailingQuestionSource(err error) *StaticQuestionSource {
	return &StaticQuestionSource{err: err}
}

func (s *StaticQuestionSource) Fetch(_ context.Context, _ string, _ domain.Filters) ([]domain.Question, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.questions, nil
}
