package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

// fakeClock hands out manually driven tickers so countdown behavior is
// deterministic in tests.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTicker(time.Duration) app.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

// Tick advances the clock one second and fires every live ticker.
func (c *fakeClock) Tick() {
	c.mu.Lock()
	c.now = c.now.Add(time.Second)
	now := c.now
	live := make([]*fakeTicker, 0, len(c.tickers))
	for _, t := range c.tickers {
		if !t.stopped() {
			live = append(live, t)
		}
	}
	c.mu.Unlock()

	for _, t := range live {
		t.ch <- now
	}
}

func (c *fakeClock) tickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

type fakeTicker struct {
	mu   sync.Mutex
	ch   chan time.Time
	done bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
}

func (t *fakeTicker) stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// fakeStore is a counting content store; an optional gate blocks the fetch
// until released or the context is cancelled.
type fakeStore struct {
	mu        sync.Mutex
	questions []domain.Question
	err       error
	gate      chan struct{}
	calls     int
}

func (s *fakeStore) FetchQuestions(ctx context.Context, _ string) ([]domain.Question, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gate
	err := s.err
	questions := s.questions
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-gate:
		}
	}
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *fakeStore) fetchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func threeQuestionQuiz() domain.QuizDescriptor {
	return domain.QuizDescriptor{
		ID:               "quiz-1",
		Title:            "Arithmetic sprint",
		DurationMin:      1,
		QuestionCount:    3,
		MarksPerQuestion: 2,
		Published:        true,
	}
}

func waitForStatus(t *testing.T, updates <-chan domain.AttemptState, status domain.AttemptStatus) domain.AttemptState {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case state, ok := <-updates:
			if !ok {
				t.Fatalf("updates closed while waiting for status %s", status)
			}
			if state.Status == status {
				return state
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %s", status)
		}
	}
}
