package redis

import (
	"context"
	"fmt"
	"time"

	"quiz-attempt-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// AttemptRegistry is a Redis-backed implementation of app.AttemptRegistry.
// One key per live attempt, claimed with SETNX so two instances never admit
// parallel attempts for the same (user, quiz). The TTL covers the quiz
// duration plus slack, so a crashed instance cannot lock a user out.
type AttemptRegistry struct {
	client *redis.Client
}

func NewAttemptRegistry(client *redis.Client) *AttemptRegistry {
	return &AttemptRegistry{client: client}
}

func (r *AttemptRegistry) Acquire(ctx context.Context, userID, quizID, attemptID string, ttl time.Duration) error {
	ok, err := r.client.SetNX(ctx, r.key(userID, quizID), attemptID, ttl).Result()
	if err != nil {
		return fmt.Errorf("claim attempt slot: %w", err)
	}
	if !ok {
		return domain.ErrAttemptInProgress
	}
	return nil
}

// Release is best-effort; an unreleased slot falls back to TTL expiry.
func (r *AttemptRegistry) Release(ctx context.Context, userID, quizID string) {
	_ = r.client.Del(ctx, r.key(userID, quizID)).Err()
}

func (r *AttemptRegistry) key(userID, quizID string) string {
	return "attempt:active:" + userID + ":" + quizID
}
