package memory

import (
	"context"
	"sync"
	"time"

	"quiz-attempt-service/internal/domain"
)

// AttemptRegistry is an in-memory implementation of app.AttemptRegistry.
// Entries expire so an attempt whose process died does not lock the user
// out forever.
type AttemptRegistry struct {
	clock func() time.Time

	mu      sync.Mutex
	entries map[registryKey]registryEntry
}

type registryKey struct {
	userID string
	quizID string
}

type registryEntry struct {
	attemptID string
	expiresAt time.Time
}

func NewAttemptRegistry() *AttemptRegistry {
	return &AttemptRegistry{
		clock:   time.Now,
		entries: make(map[registryKey]registryEntry),
	}
}

// NewAttemptRegistryWithClock is test-only for deterministic expiry.
func NewAttemptRegistryWithClock(now func() time.Time) *AttemptRegistry {
	r := NewAttemptRegistry()
	r.clock = now
	return r
}

func (r *AttemptRegistry) Acquire(_ context.Context, userID, quizID, attemptID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	key := registryKey{userID: userID, quizID: quizID}
	if entry, ok := r.entries[key]; ok && entry.expiresAt.After(now) {
		return domain.ErrAttemptInProgress
	}
	r.entries[key] = registryEntry{attemptID: attemptID, expiresAt: now.Add(ttl)}
	return nil
}

func (r *AttemptRegistry) Release(_ context.Context, userID, quizID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, registryKey{userID: userID, quizID: quizID})
}
