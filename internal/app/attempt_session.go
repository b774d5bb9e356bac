package app

import (
	"context"
	"sync"
	"time"

	"quiz-attempt-service/internal/domain"
)

// QuestionRepository is the content-store view a session needs: one fetch of
// the immutable question set per attempt.
type QuestionRepository interface {
	FetchQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
}

// AttemptSession drives one quiz attempt through its lifecycle. All mutation
// goes through Start, SelectAnswer, NextQuestion, PreviousQuestion,
// GoToQuestion, and Submit, plus the internal countdown tick; each transition
// replaces the current snapshot atomically and notifies subscribers. A
// session is single-use: once it reaches finished or error, a new session
// must be constructed to retry.
type AttemptSession struct {
	id    string
	store QuestionRepository
	clock Clock

	mu          sync.Mutex
	state       domain.AttemptState
	subscribers map[chan domain.AttemptState]struct{}
	ticker      Ticker
	tickerDone  chan struct{}
	fetchCancel context.CancelFunc
	onDone      func()
	closed      bool
}

// NewAttemptSession constructs a session in the initial state for one quiz.
// A nil clock means wall time.
func NewAttemptSession(id string, quiz domain.QuizDescriptor, store QuestionRepository, clock Clock) *AttemptSession {
	if clock == nil {
		clock = RealClock()
	}
	return &AttemptSession{
		id:    id,
		store: store,
		clock: clock,
		state: domain.AttemptState{
			Quiz:        quiz,
			Status:      domain.StatusInitial,
			UserAnswers: make(map[string]int),
		},
		subscribers: make(map[chan domain.AttemptState]struct{}),
	}
}

// ID returns the attempt token assigned at construction.
func (s *AttemptSession) ID() string { return s.id }

// State returns the current snapshot.
func (s *AttemptSession) State() domain.AttemptState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe returns a channel of state snapshots, primed with the current
// state. The caller must invoke the returned cancel function to avoid leaks;
// the channel is closed on cancel or when the session is closed.
func (s *AttemptSession) Subscribe() (<-chan domain.AttemptState, func()) {
	ch := make(chan domain.AttemptState, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	initial := s.state.Clone()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Start fetches the question set and arms the countdown once it arrives.
// Calling Start while the attempt is already loading or active is a no-op;
// no second fetch is issued.
func (s *AttemptSession) Start(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.state.Status != domain.StatusInitial {
		s.mu.Unlock()
		return
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	s.fetchCancel = cancel
	quizID := s.state.Quiz.ID
	s.setStateLocked(func(st *domain.AttemptState) {
		st.Status = domain.StatusLoading
	})
	s.mu.Unlock()

	go s.load(fetchCtx, quizID)
}

func (s *AttemptSession) load(ctx context.Context, quizID string) {
	questions, err := s.store.FetchQuestions(ctx, quizID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state.Status != domain.StatusLoading {
		return
	}
	if s.fetchCancel != nil {
		s.fetchCancel()
		s.fetchCancel = nil
	}

	if err != nil {
		s.setStateLocked(func(st *domain.AttemptState) {
			st.Status = domain.StatusError
			st.Err = "failed to load questions: " + err.Error()
		})
		s.fireDoneLocked()
		return
	}
	if len(questions) == 0 {
		s.setStateLocked(func(st *domain.AttemptState) {
			st.Status = domain.StatusError
			st.Err = domain.ErrEmptyQuestionSet.Error()
		})
		s.fireDoneLocked()
		return
	}

	s.setStateLocked(func(st *domain.AttemptState) {
		st.Status = domain.StatusActive
		st.Questions = questions
		st.SecondsRemaining = st.Quiz.DurationMin * 60
	})
	s.armTimerLocked()
}

// SelectAnswer records or overwrites the chosen option for a question. An
// unknown question ID or out-of-range option index can only come from a
// caller bug, so it is dropped silently rather than surfaced.
func (s *AttemptSession) SelectAnswer(questionID string, optionIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state.Status != domain.StatusActive {
		return
	}

	var question *domain.Question
	for i := range s.state.Questions {
		if s.state.Questions[i].ID == questionID {
			question = &s.state.Questions[i]
			break
		}
	}
	if question == nil || optionIndex < 0 || optionIndex >= len(question.Options) {
		return
	}

	s.setStateLocked(func(st *domain.AttemptState) {
		st.UserAnswers[questionID] = optionIndex
	})
}

// NextQuestion advances the cursor, clamping at the last question.
func (s *AttemptSession) NextQuestion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goToLocked(s.state.CurrentQuestion + 1)
}

// PreviousQuestion retreats the cursor, clamping at the first question.
func (s *AttemptSession) PreviousQuestion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goToLocked(s.state.CurrentQuestion - 1)
}

// GoToQuestion jumps to an arbitrary question, with the same clamping as
// NextQuestion and PreviousQuestion.
func (s *AttemptSession) GoToQuestion(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goToLocked(index)
}

func (s *AttemptSession) goToLocked(index int) {
	if s.closed || s.state.Status != domain.StatusActive {
		return
	}
	if index < 0 {
		index = 0
	}
	if last := len(s.state.Questions) - 1; index > last {
		index = last
	}
	if index == s.state.CurrentQuestion {
		return
	}
	s.setStateLocked(func(st *domain.AttemptState) {
		st.CurrentQuestion = index
	})
}

// Submit ends the attempt, scores the recorded answers, and disarms the
// countdown. Submitting while not active is a no-op.
func (s *AttemptSession) Submit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state.Status != domain.StatusActive {
		return
	}
	s.finishLocked(s.state.SecondsRemaining)
}

// Close disposes the session: the in-flight fetch is cancelled, the
// countdown is disarmed, subscriber channels are closed, and no further
// snapshots are produced.
func (s *AttemptSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.fetchCancel != nil {
		s.fetchCancel()
		s.fetchCancel = nil
	}
	s.disarmTimerLocked()
	s.fireDoneLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *AttemptSession) armTimerLocked() {
	ticker := s.clock.NewTicker(time.Second)
	done := make(chan struct{})
	s.ticker = ticker
	s.tickerDone = done

	go func() {
		for {
			select {
			case <-ticker.C():
				if !s.tick() {
					return
				}
			case <-done:
				return
			}
		}
	}()
}

func (s *AttemptSession) disarmTimerLocked() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.tickerDone)
	s.ticker = nil
	s.tickerDone = nil
}

// tick consumes one second of the countdown. The tick that would bring the
// clock to zero behaves exactly like Submit, so scoring never runs twice.
func (s *AttemptSession) tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state.Status != domain.StatusActive {
		return false
	}
	if s.state.SecondsRemaining <= 1 {
		s.finishLocked(0)
		return false
	}
	s.setStateLocked(func(st *domain.AttemptState) {
		st.SecondsRemaining--
	})
	return true
}

func (s *AttemptSession) finishLocked(secondsRemaining int) {
	s.disarmTimerLocked()
	tally := Score(s.state.Questions, s.state.UserAnswers, s.state.Quiz.MarksPerQuestion)
	s.setStateLocked(func(st *domain.AttemptState) {
		st.Status = domain.StatusFinished
		st.SecondsRemaining = secondsRemaining
		st.Tally = tally
	})
	s.fireDoneLocked()
}

func (s *AttemptSession) fireDoneLocked() {
	if s.onDone == nil {
		return
	}
	done := s.onDone
	s.onDone = nil
	done()
}

// setStateLocked installs the next snapshot and pushes it to every
// subscriber without ever blocking on a slow one.
func (s *AttemptSession) setStateLocked(mutate func(*domain.AttemptState)) {
	next := s.state.Clone()
	mutate(&next)
	s.state = next

	for ch := range s.subscribers {
		snapshot := next.Clone()
		select {
		case ch <- snapshot:
		default:
			// drop the stale update so a slow observer never stalls a transition
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}
