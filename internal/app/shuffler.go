package app

import (
	"math/rand"
	"sync"
	"time"

	"trivia-session-service/internal/domain"
)

// Shuffler turns raw questions into prepared questions with a uniformly random
// display order. A comparator-based shuffle would bias some permutations, so
// the permutation comes from rand.Shuffle (Fisher-Yates).
type Shuffler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewShuffler() *Shuffler {
	return NewShufflerWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewShufflerWithRand is test-only for deterministic permutations.
func NewShufflerWithRand(rnd *rand.Rand) *Shuffler {
	return &Shuffler{rnd: rnd}
}

// Prepare builds the candidate set [correct, incorrect...] for each question
// and fixes a shuffled display order on it. Exactly one option per question
// carries Correct=true.
func (s *Shuffler) Prepare(questions []domain.Question) []domain.PreparedQuestion {
	prepared := make([]domain.PreparedQuestion, 0, len(questions))
	for _, q := range questions {
		answers := make([]domain.AnswerOption, 0, len(q.IncorrectAnswers)+1)
		answers = append(answers, domain.AnswerOption{Text: q.CorrectAnswer, Correct: true})
		for i, text := range q.IncorrectAnswers {
			original := i
			answers = append(answers, domain.AnswerOption{Text: text, OriginalIndex: &original})
		}

		s.mu.Lock()
		s.rnd.Shuffle(len(answers), func(i, j int) {
			answers[i], answers[j] = answers[j], answers[i]
		})
		s.mu.Unlock()

		prepared = append(prepared, domain.PreparedQuestion{Question: q, Answers: answers})
	}
	return prepared
}
