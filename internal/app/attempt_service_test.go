package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
)

func newTestService() *app.AttemptService {
	draft := threeQuestionQuiz()
	draft.ID = "quiz-draft"
	draft.Published = false

	repo := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1":     {QuizDescriptor: threeQuestionQuiz(), Questions: threeQuestions()},
		"quiz-draft": {QuizDescriptor: draft, Questions: threeQuestions()},
	}), 5*time.Minute)
	return app.NewAttemptService(repo, memory.NewAttemptRegistry(), newFakeClock())
}

func TestBeginRejectsUnknownQuiz(t *testing.T) {
	service := newTestService()

	_, err := service.Begin(context.Background(), "u1", "quiz-missing")
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestBeginRejectsUnpublishedQuiz(t *testing.T) {
	service := newTestService()

	_, err := service.Begin(context.Background(), "u1", "quiz-draft")
	if !errors.Is(err, domain.ErrQuizNotPublished) {
		t.Fatalf("expected ErrQuizNotPublished, got %v", err)
	}
}

func TestBeginEnforcesSingleActiveAttempt(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	first, err := service.Begin(ctx, "u1", "quiz-1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer first.Close()
	if first.ID() == "" {
		t.Fatalf("expected an attempt token")
	}

	if _, err := service.Begin(ctx, "u1", "quiz-1"); !errors.Is(err, domain.ErrAttemptInProgress) {
		t.Fatalf("expected ErrAttemptInProgress, got %v", err)
	}

	// A different user is unaffected.
	other, err := service.Begin(ctx, "u2", "quiz-1")
	if err != nil {
		t.Fatalf("begin for second user: %v", err)
	}
	other.Close()
}

func TestSlotReleasedAfterFinish(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	session, err := service.Begin(ctx, "u1", "quiz-1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer session.Close()

	updates, cancel := session.Subscribe()
	defer cancel()
	session.Start(ctx)
	waitForStatus(t, updates, domain.StatusActive)
	session.Submit()
	waitForStatus(t, updates, domain.StatusFinished)

	retry, err := service.Begin(ctx, "u1", "quiz-1")
	if err != nil {
		t.Fatalf("expected slot released after finish, got %v", err)
	}
	retry.Close()
}

func TestSlotReleasedOnClose(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	session, err := service.Begin(ctx, "u1", "quiz-1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	session.Close()

	retry, err := service.Begin(ctx, "u1", "quiz-1")
	if err != nil {
		t.Fatalf("expected slot released after close, got %v", err)
	}
	retry.Close()
}
