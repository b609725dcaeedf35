package http

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/domain"
	"github.com/gorilla/websocket"
)

// SessionFactory builds a fresh session for one connection.
type SessionFactory func(player app.Identity) *app.Session

// WSHandler hosts one trivia session per websocket connection. It is a thin
// adapter: every rule lives in the session engine, the handler only maps
// messages to engine calls and engine events to messages.
type WSHandler struct {
	newSession SessionFactory
	seconds    int
	upgrader   websocket.Upgrader
}

func NewWSHandler(newSession SessionFactory, secondsPerQuestion int) *WSHandler {
	return &WSHandler{
		newSession: newSession,
		seconds:    secondsPerQuestion,
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

type startPayload struct {
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	Type       string `json:"type"`
}

type answerPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type questionPayload struct {
	Index      int      `json:"index"`
	Question   string   `json:"question"`
	Category   string   `json:"category"`
	Difficulty string   `json:"difficulty"`
	Answers    []string `json:"answers"`
	Seconds    int      `json:"seconds"`
}

type tickPayload struct {
	Remaining int `json:"remaining"`
}

type lockedPayload struct {
	Correct       bool   `json:"correct"`
	Awarded       int    `json:"awarded"`
	Expired       bool   `json:"expired"`
	CorrectAnswer string `json:"correctAnswer"`
}

type completedPayload struct {
	Name       string `json:"name"`
	Picture    string `json:"picture"`
	Score      int    `json:"score"`
	Assertions int    `json:"assertions"`
}

type errorPayload struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// ServeWS upgrades the request and wires the connection into a new session.
// Expects name (required) and email query parameters; the avatar reference is
// a Gravatar URL derived from the email, outside the engine.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	email := r.URL.Query().Get("email")
	if name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session := h.newSession(app.Identity{Name: name, AvatarRef: gravatarURL(email)})
	defer session.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	pumpDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(pumpDone)
		h.pumpEvents(session, send, closeSignals)
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid start payload"}}
					continue
				}
			}
			if err := session.Start(r.Context(), domain.Filters{
				Category:   payload.Category,
				Difficulty: payload.Difficulty,
				Type:       payload.Type,
			}); err != nil {
				// Outcome already delivered through the event stream.
				log.Printf("session start: %v", err)
			}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			// Rejected selections (locked question) are silent no-ops.
			session.SelectAnswer(payload.Index)
		case "next":
			session.Advance(r.Context())
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-pumpDone
	close(send)
	<-writerDone
}

// pumpEvents translates engine events into outbound messages. Correct flags
// never reach the client in question payloads; the correct answer text is
// revealed only once the question locks.
func (h *WSHandler) pumpEvents(session *app.Session, send chan<- outboundMessage[any], closeSignals <-chan struct{}) {
	var current *domain.PreparedQuestion
	for {
		select {
		case ev := <-session.Events():
			var msg outboundMessage[any]
			switch ev.Kind {
			case app.EventQuestion:
				current = ev.Question
				answers := make([]string, 0, len(ev.Question.Answers))
				for _, option := range ev.Question.Answers {
					answers = append(answers, option.Text)
				}
				msg = outboundMessage[any]{Type: "question", Payload: questionPayload{
					Index:      ev.Index,
					Question:   ev.Question.Text,
					Category:   ev.Question.Category,
					Difficulty: ev.Question.Difficulty,
					Answers:    answers,
					Seconds:    h.seconds,
				}}
			case app.EventTick:
				msg = outboundMessage[any]{Type: "tick", Payload: tickPayload{Remaining: ev.Remaining}}
			case app.EventLocked:
				msg = outboundMessage[any]{Type: "locked", Payload: lockedPayload{
					Correct:       ev.Correct,
					Awarded:       ev.Awarded,
					Expired:       ev.Expired,
					CorrectAnswer: correctAnswerText(current),
				}}
			case app.EventCompleted:
				msg = outboundMessage[any]{Type: "completed", Payload: completedPayload{
					Name:       ev.Result.Name,
					Picture:    ev.Result.AvatarRef,
					Score:      ev.Result.Score,
					Assertions: session.Assertions(),
				}}
			case app.EventAborted:
				msg = outboundMessage[any]{Type: "aborted", Payload: errorPayload{Message: "session token expired"}}
			case app.EventError:
				payload := errorPayload{Message: "could not load questions"}
				if errors.Is(ev.Err, domain.ErrInvalidParameters) {
					payload = errorPayload{Message: "no questions for these settings", Action: "settings"}
				}
				msg = outboundMessage[any]{Type: "error", Payload: payload}
			default:
				continue
			}
			select {
			case send <- msg:
			case <-closeSignals:
				return
			}
		case <-closeSignals:
			return
		}
	}
}

func correctAnswerText(q *domain.PreparedQuestion) string {
	if q == nil {
		return ""
	}
	for _, option := range q.Answers {
		if option.Correct {
			return option.Text
		}
	}
	return ""
}

func gravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:])
}
