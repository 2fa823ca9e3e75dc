package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gargallo/neolingus-backend/internal/config"
	"github.com/gargallo/neolingus-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// AnswerPayload is the queue message consumed by the autosave worker.
type AnswerPayload struct {
	SessionID string `json:"session_id"`
	QID       string `json:"q_id"`
	Answer    string `json:"answer"`
}

// ResultPayload is the queue message consumed by the result worker.
type ResultPayload struct {
	SessionID string        `json:"session_id"`
	Score     int           `json:"score"`
	Result    *model.Result `json:"result"`
}

// RedisSaver persists answers to the Redis hot buffer and enqueues them
// for asynchronous PostgreSQL persistence. It is the engine's autosave
// collaborator: a returned error only flips the visible save status,
// the in-memory answer is already committed.
type RedisSaver struct {
	rdb *redis.Client
}

// NewRedisSaver creates a RedisSaver.
func NewRedisSaver(rdb *redis.Client) *RedisSaver {
	return &RedisSaver{rdb: rdb}
}

// Save writes the answer to the session's Redis hash and pushes a
// persistence job onto the answers queue.
func (s *RedisSaver) Save(ctx context.Context, sessionID, questionID uuid.UUID, value string) error {
	key := config.CacheKey.SessionAnswersKey(sessionID.String())

	if err := s.rdb.HSet(ctx, key, questionID.String(), value).Err(); err != nil {
		return fmt.Errorf("buffer answer: %w", err)
	}

	raw, err := json.Marshal(AnswerPayload{
		SessionID: sessionID.String(),
		QID:       questionID.String(),
		Answer:    value,
	})
	if err != nil {
		return fmt.Errorf("marshal answer payload: %w", err)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw).Err(); err != nil {
		return fmt.Errorf("enqueue answer: %w", err)
	}
	return nil
}

// RedisResultSink enqueues finalized results for asynchronous
// persistence. The engine publishes through it exactly once per session.
type RedisResultSink struct {
	rdb *redis.Client
}

// NewRedisResultSink creates a RedisResultSink.
func NewRedisResultSink(rdb *redis.Client) *RedisResultSink {
	return &RedisResultSink{rdb: rdb}
}

// Publish pushes the result onto the results queue.
func (s *RedisResultSink) Publish(ctx context.Context, sessionID uuid.UUID, result *model.Result) error {
	raw, err := json.Marshal(ResultPayload{
		SessionID: sessionID.String(),
		Score:     result.TotalScore,
		Result:    result,
	})
	if err != nil {
		return fmt.Errorf("marshal result payload: %w", err)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err(); err != nil {
		return fmt.Errorf("enqueue result: %w", err)
	}
	return nil
}
