package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"quiz-attempt-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	QuestionRepository
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptRegistry tracks which (user, quiz) pairs have a live attempt so a
// second tab or device cannot open a parallel one. Acquire returns
// domain.ErrAttemptInProgress when the slot is already held.
type AttemptRegistry interface {
	Acquire(ctx context.Context, userID, quizID, attemptID string, ttl time.Duration) error
	Release(ctx context.Context, userID, quizID string)
}

// registrySlack keeps the registry slot alive a little past the countdown so
// an attempt that finishes on the wire can still release it cleanly.
const registrySlack = 5 * time.Minute

// AttemptService wires quiz content, the active-attempt registry, and
// session construction together for the transport layer.
type AttemptService struct {
	quizzes  QuizRepository
	registry AttemptRegistry
	clock    Clock
}

// NewAttemptService builds the service. A nil clock means wall time.
func NewAttemptService(quizzes QuizRepository, registry AttemptRegistry, clock Clock) *AttemptService {
	if clock == nil {
		clock = RealClock()
	}
	return &AttemptService{quizzes: quizzes, registry: registry, clock: clock}
}

// Begin validates the quiz, claims the user's attempt slot, and returns a
// fresh session in the initial state. The slot is released once the attempt
// reaches a terminal state or the session is closed.
func (s *AttemptService) Begin(ctx context.Context, userID, quizID string) (*AttemptSession, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.Published {
		return nil, domain.ErrQuizNotPublished
	}

	attemptID := newAttemptID()
	ttl := time.Duration(quiz.DurationMin)*time.Minute + registrySlack
	if err := s.registry.Acquire(ctx, userID, quizID, attemptID, ttl); err != nil {
		return nil, err
	}

	session := NewAttemptSession(attemptID, quiz.QuizDescriptor, s.quizzes, s.clock)
	session.onDone = func() {
		s.registry.Release(context.Background(), userID, quizID)
	}
	return session, nil
}

// newAttemptID returns a random 16-hex-char attempt token.
func newAttemptID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
