package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketSessionFlow(t *testing.T) {
	kv := memory.NewKV()
	ranking := app.NewRankingLog(kv)
	source := memory.NewStaticQuestionSource([]domain.Question{{
		Text:             "The Pacific is the largest ocean on Earth.",
		CorrectAnswer:    "True",
		IncorrectAnswers: []string{"False"},
		Category:         "Geography",
		Difficulty:       "easy",
		Type:             "boolean",
	}})

	newSession := func(player app.Identity) *app.Session {
		return app.NewSessionWithInterval(app.SessionDeps{
			Source:   source,
			Shuffler: app.NewShuffler(),
			Ranking:  ranking,
		}, player, 30, time.Hour)
	}
	handler := NewWSHandler(newSession, 30)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?name=Alice&email=alice@example.com"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"type": "start", "payload": map[string]any{}}); err != nil {
		t.Fatalf("write start: %v", err)
	}

	msgType, payload := readNext(conn, t, "question")
	answers, _ := payload["answers"].([]any)
	if msgType != "question" || len(answers) != 2 {
		t.Fatalf("expected question with 2 answers, got %s %v", msgType, payload)
	}
	// Correctness flags never reach the client; the test knows the right text.
	answerIndex := -1
	for i, text := range answers {
		if text == "True" {
			answerIndex = i
		}
	}
	if answerIndex == -1 {
		t.Fatalf("correct text missing from answers: %v", answers)
	}

	if err := conn.WriteJSON(map[string]any{"type": "answer", "payload": map[string]any{"index": answerIndex}}); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	_, payload = readNext(conn, t, "locked")
	if payload["correct"] != true {
		t.Fatalf("expected correct lock, got %v", payload)
	}
	if payload["correctAnswer"] != "True" {
		t.Fatalf("expected revealed answer, got %v", payload)
	}
	// easy base 10 + 30 remaining seconds * 10
	if awarded, _ := payload["awarded"].(float64); int(awarded) != 310 {
		t.Fatalf("expected 310 points, got %v", payload["awarded"])
	}

	if err := conn.WriteJSON(map[string]any{"type": "next"}); err != nil {
		t.Fatalf("write next: %v", err)
	}
	_, payload = readNext(conn, t, "completed")
	if payload["name"] != "Alice" {
		t.Fatalf("expected Alice in result, got %v", payload)
	}
	if score, _ := payload["score"].(float64); int(score) != 310 {
		t.Fatalf("expected final score 310, got %v", payload["score"])
	}
	if assertions, _ := payload["assertions"].(float64); int(assertions) != 1 {
		t.Fatalf("expected 1 assertion, got %v", payload["assertions"])
	}

	entries, err := ranking.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("read ranking: %v", err)
	}
	if len(entries) != 1 || entries[0].Score != 310 {
		t.Fatalf("expected 1 ranking entry with score 310, got %+v", entries)
	}
}

func TestWebSocketRequiresName(t *testing.T) {
	handler := NewWSHandler(func(app.Identity) *app.Session { return nil }, 30)
	server := httptest.NewServer(http.HandlerFunc(handler.ServeWS))
	defer server.Close()

	resp, err := http.Get(server.URL + "?email=alice@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGravatarURL(t *testing.T) {
	// md5("alice@example.com")
	want := "https://www.gravatar.com/avatar/c160f8cc69a4f0bf2b0362752353d060"
	if got := gravatarURL(" Alice@Example.com "); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%v)", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}
