package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"trivia-session-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

const questionsPerSession = 5

// QuestionBank serves question sets from Postgres for deployments that cannot
// reach the remote trivia provider. Rows hold one question each as JSONB,
// with the filter columns denormalized for the WHERE clause.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

// Fetch implements the question source contract over the local bank. The
// token is accepted for interface parity and ignored; the bank keeps no
// session state. A bank that cannot fill a full set behaves like the
// provider's "no results" outcome.
func (b *QuestionBank) Fetch(ctx context.Context, _ string, filters domain.Filters) ([]domain.Question, error) {
	rows, err := b.pool.Query(ctx, `
		SELECT data FROM bank_questions
		WHERE ($1 = '' OR category = $1)
		  AND ($2 = '' OR difficulty = $2)
		  AND ($3 = '' OR qtype = $3)
		ORDER BY random()
		LIMIT $4`,
		filters.Category, filters.Difficulty, filters.Type, questionsPerSession)
	if err != nil {
		return nil, fmt.Errorf("query question bank: %w", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0, questionsPerSession)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}

	if len(questions) < questionsPerSession {
		return nil, domain.ErrInvalidParameters
	}
	return questions, nil
}
