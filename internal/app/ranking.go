package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"trivia-session-service/internal/domain"
)

// KeyValue is the persistence surface the ranking log writes through.
type KeyValue interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// RankingStore records completed session results.
type RankingStore interface {
	Append(ctx context.Context, result domain.PlayerResult) error
	ReadAll(ctx context.Context) ([]domain.RankingEntry, error)
}

const rankingKey = "trivia:ranking"

// RankingLog stores the ranking as a JSON-serialized sequence under a fixed
// key. An absent or unreadable value reads as an empty sequence so a corrupt
// store never fails a session. Entries are append-only; prior entries are
// never mutated.
type RankingLog struct {
	kv KeyValue
}

func NewRankingLog(kv KeyValue) *RankingLog {
	return &RankingLog{kv: kv}
}

func (l *RankingLog) Append(ctx context.Context, result domain.PlayerResult) error {
	entries, err := l.ReadAll(ctx)
	if err != nil {
		return err
	}
	entries = append(entries, domain.RankingEntry{
		Name:      result.Name,
		AvatarRef: result.AvatarRef,
		Score:     result.Score,
	})
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal ranking: %w", err)
	}
	return l.kv.Set(ctx, rankingKey, string(data))
}

func (l *RankingLog) ReadAll(ctx context.Context) ([]domain.RankingEntry, error) {
	raw, ok, err := l.kv.Get(ctx, rankingKey)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var entries []domain.RankingEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		log.Printf("ranking store unreadable, treating as empty: %v", err)
		return nil, nil
	}
	return entries, nil
}
