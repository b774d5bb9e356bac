package domain

// Question models an MCQ question with exactly one correct option.
// Questions are immutable once loaded into an attempt.
type Question struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

// QuizDescriptor is the metadata for a quiz as supplied by the content store.
// QuestionCount is informational; the authoritative count comes from the
// loaded question set.
type QuizDescriptor struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	DurationMin      int    `json:"durationMin"`
	QuestionCount    int    `json:"questionCount"`
	MarksPerQuestion int    `json:"marksPerQuestion"`
	Published        bool   `json:"published"`
}

// Quiz is the descriptor together with its full question set.
type Quiz struct {
	QuizDescriptor
	Questions []Question `json:"questions"`
}

// AttemptStatus enumerates the lifecycle states of one quiz attempt.
type AttemptStatus string

const (
	StatusInitial  AttemptStatus = "initial"
	StatusLoading  AttemptStatus = "loading"
	StatusActive   AttemptStatus = "active"
	StatusFinished AttemptStatus = "finished"
	StatusError    AttemptStatus = "error"
)

// Terminal reports whether the status admits no further transitions.
func (s AttemptStatus) Terminal() bool {
	return s == StatusFinished || s == StatusError
}

// Tally is the result of scoring one attempt. The three counts always sum
// to the number of loaded questions.
type Tally struct {
	TotalCorrect    int `json:"totalCorrect"`
	TotalIncorrect  int `json:"totalIncorrect"`
	TotalUnanswered int `json:"totalUnanswered"`
	Score           int `json:"score"`
}

// AttemptState is a snapshot of one quiz-taking session. Every transition
// produces a fresh snapshot; observers never see a snapshot mutate under
// them.
type AttemptState struct {
	Quiz             QuizDescriptor `json:"quiz"`
	Questions        []Question     `json:"questions"`
	Status           AttemptStatus  `json:"status"`
	CurrentQuestion  int            `json:"currentQuestion"`
	UserAnswers      map[string]int `json:"userAnswers"`
	SecondsRemaining int            `json:"secondsRemaining"`
	Err              string         `json:"error,omitempty"`
	Tally            Tally          `json:"tally"`
}

// Clone copies the snapshot deeply enough that the receiver and the copy
// never share mutable data. Questions are immutable so the slice header
// is shared.
func (s AttemptState) Clone() AttemptState {
	out := s
	if s.UserAnswers != nil {
		answers := make(map[string]int, len(s.UserAnswers))
		for id, idx := range s.UserAnswers {
			answers[id] = idx
		}
		out.UserAnswers = answers
	}
	return out
}
