package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizNotPublished is returned when a student opens a quiz that is not live yet.
	ErrQuizNotPublished = errors.New("quiz is not published")
	// ErrEmptyQuestionSet is returned when the content store yields a quiz with no questions.
	ErrEmptyQuestionSet = errors.New("quiz has no questions")
	// ErrAttemptInProgress is returned when the user already has a live attempt for the quiz.
	ErrAttemptInProgress = errors.New("an attempt for this quiz is already in progress")
)
