package http

import (
	"encoding/json"
	"net/http"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler exposes one attempt per websocket connection: inbound commands
// map onto the session operations, and every state transition is pushed back
// as a snapshot.
type WSHandler struct {
	service  *app.AttemptService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AttemptService, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID  string `json:"questionId"`
	OptionIndex int    `json:"optionIndex"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// questionView is a Question with the answer key stripped; clients only see
// which option they picked, never which one is correct.
type questionView struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type stateView struct {
	Quiz             domain.QuizDescriptor `json:"quiz"`
	Status           domain.AttemptStatus  `json:"status"`
	Questions        []questionView        `json:"questions"`
	CurrentQuestion  int                   `json:"currentQuestion"`
	UserAnswers      map[string]int        `json:"userAnswers"`
	SecondsRemaining int                   `json:"secondsRemaining"`
	Error            string                `json:"error,omitempty"`
	Tally            *domain.Tally         `json:"tally,omitempty"`
}

func viewOf(state domain.AttemptState) stateView {
	view := stateView{
		Quiz:             state.Quiz,
		Status:           state.Status,
		CurrentQuestion:  state.CurrentQuestion,
		UserAnswers:      state.UserAnswers,
		SecondsRemaining: state.SecondsRemaining,
		Error:            state.Err,
	}
	view.Questions = make([]questionView, 0, len(state.Questions))
	for _, q := range state.Questions {
		view.Questions = append(view.Questions, questionView{ID: q.ID, Text: q.Text, Options: q.Options})
	}
	if state.Status == domain.StatusFinished {
		tally := state.Tally
		view.Tally = &tally
	}
	return view
}

// ServeWS upgrades HTTP requests to websockets and wires them into one
// attempt session. Closing the connection disposes the attempt.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	if quizID == "" || userID == "" {
		http.Error(w, "missing quizId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	session, err := h.service.Begin(r.Context(), userID, quizID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer session.Close()

	h.logger.Info("attempt opened",
		zap.String("attemptId", session.ID()),
		zap.String("quizId", quizID),
		zap.String("userId", userID),
	)

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: viewOf(update)}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			session.Start(r.Context())
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			session.SelectAnswer(payload.QuestionID, payload.OptionIndex)
		case "next":
			session.NextQuestion()
		case "previous":
			session.PreviousQuestion()
		case "goto":
			var payload gotoPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid goto payload"}}
				continue
			}
			session.GoToQuestion(payload.Index)
		case "submit":
			session.Submit()
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
