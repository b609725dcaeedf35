package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"trivia-session-service/internal/domain"
)

// QuestionSource fetches a question set from the trivia provider.
type QuestionSource interface {
	Fetch(ctx context.Context, token string, filters domain.Filters) ([]domain.Question, error)
}

// Identity is the player context consumed when building the final result.
// Name and avatar derivation happen outside the engine.
type Identity struct {
	Name      string
	AvatarRef string
}

// State is the session's position in the Loading -> (Error | Playing...) ->
// Completed machine. Aborted is the forced exit on token expiry.
type State string

const (
	StateLoading   State = "loading"
	StatePlaying   State = "playing"
	StateCompleted State = "completed"
	StateError     State = "error"
	StateAborted   State = "aborted"
)

// EventKind tags the updates a session pushes to its host.
type EventKind string

const (
	EventQuestion  EventKind = "question"
	EventTick      EventKind = "tick"
	EventLocked    EventKind = "locked"
	EventCompleted EventKind = "completed"
	EventAborted   EventKind = "aborted"
	EventError     EventKind = "error"
)

// Event is one update from the session to its host.
type Event struct {
	Kind      EventKind
	Index     int
	Question  *domain.PreparedQuestion // EventQuestion
	Remaining int                      // EventTick
	Correct   bool                     // EventLocked
	Awarded   int                      // EventLocked
	Expired   bool                     // EventLocked, true when the clock ran out
	Result    *domain.PlayerResult     // EventCompleted
	Err       error                    // EventError
}

// Selection reports the outcome of an accepted answer.
type Selection struct {
	Correct bool
	Awarded int
}

// SessionDeps are the collaborators a session delegates to. Tokens may be nil
// for sources that need no session token.
type SessionDeps struct {
	Source   QuestionSource
	Shuffler *Shuffler
	Ranking  RankingStore
	Tokens   *TokenProvider
}

// Session is the state machine for one timed trivia run: question progression,
// per-question countdown, answer locking, scoring, and the final ranking
// write. All transitions are serialized under its mutex; stale countdown
// callbacks become no-ops via the state checks in the handlers.
type Session struct {
	deps     SessionDeps
	player   Identity
	seconds  int
	interval time.Duration

	mu         sync.Mutex
	starting   bool
	state      State
	questions  []domain.PreparedQuestion
	index      int
	locked     bool
	remaining  int
	score      int
	assertions int
	timer      *Countdown

	events chan Event
}

const pointsPerRemainingSecond = 10

func NewSession(deps SessionDeps, player Identity, secondsPerQuestion int) *Session {
	return NewSessionWithInterval(deps, player, secondsPerQuestion, time.Second)
}

// NewSessionWithInterval is test-only for compressing the countdown clock.
func NewSessionWithInterval(deps SessionDeps, player Identity, secondsPerQuestion int, tickInterval time.Duration) *Session {
	return &Session{
		deps:     deps,
		player:   player,
		seconds:  secondsPerQuestion,
		interval: tickInterval,
		state:    StateLoading,
		events:   make(chan Event, 32),
	}
}

// Events returns the session's update stream. The channel is never closed;
// terminal events (completed, aborted, error) mark the end of the stream.
func (s *Session) Events() <-chan Event { return s.events }

// Start fetches and prepares the question set, then enters Playing at index 0
// with a fresh countdown. Fetch failures are classified exactly once here:
// an expired token clears the stored token and aborts the session, invalid
// parameters and transport failures land in the error state. No retries.
func (s *Session) Start(ctx context.Context, filters domain.Filters) error {
	s.mu.Lock()
	if s.state != StateLoading || s.starting {
		s.mu.Unlock()
		return domain.ErrSessionStarted
	}
	s.starting = true
	s.mu.Unlock()

	token := ""
	if s.deps.Tokens != nil {
		var err error
		token, err = s.deps.Tokens.Token(ctx)
		if err != nil {
			s.fail(StateError, err)
			return err
		}
	}

	questions, err := s.deps.Source.Fetch(ctx, token, filters)
	if err == nil && len(questions) == 0 {
		err = domain.ErrInvalidParameters
	}
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			if s.deps.Tokens != nil {
				if clearErr := s.deps.Tokens.Clear(ctx); clearErr != nil {
					log.Printf("clear session token: %v", clearErr)
				}
			}
			s.fail(StateAborted, err)
		} else {
			s.fail(StateError, err)
		}
		return err
	}

	prepared := s.deps.Shuffler.Prepare(questions)

	s.mu.Lock()
	s.questions = prepared
	s.state = StatePlaying
	s.index = 0
	s.mu.Unlock()

	s.emit(Event{Kind: EventQuestion, Index: 0, Question: &prepared[0]})
	s.startCountdown()
	return nil
}

// SelectAnswer locks in the player's choice for the current question, by
// display index. Accepted only while Playing and unlocked; a selection after
// expiry or after an earlier selection is a no-op and the second return is
// false. A correct choice scores base(difficulty) + remaining*10 and counts
// one assertion; an incorrect choice scores nothing. Locking cancels the
// countdown regardless of correctness.
func (s *Session) SelectAnswer(display int) (Selection, bool) {
	s.mu.Lock()
	if s.state != StatePlaying || s.locked {
		s.mu.Unlock()
		return Selection{}, false
	}
	question := s.questions[s.index]
	if display < 0 || display >= len(question.Answers) {
		s.mu.Unlock()
		return Selection{}, false
	}

	option := question.Answers[display]
	awarded := 0
	if option.Correct {
		awarded = difficultyBase(question.Difficulty) + s.remaining*pointsPerRemainingSecond
		s.score += awarded
		s.assertions++
	}
	s.locked = true
	index := s.index
	timer := s.timer
	s.mu.Unlock()

	// Cancel outside the session mutex: an in-flight tick may be waiting on it.
	if timer != nil {
		timer.Cancel()
	}

	s.emit(Event{Kind: EventLocked, Index: index, Correct: option.Correct, Awarded: awarded})
	return Selection{Correct: option.Correct, Awarded: awarded}, true
}

// Advance moves past a locked question. Rejected (second return false) while
// the current question is still open. From the last index it completes the
// session: the result is appended to the ranking exactly once and the
// completed event signals the handoff to the summary view.
func (s *Session) Advance(ctx context.Context) (State, bool) {
	s.mu.Lock()
	if s.state != StatePlaying || !s.locked {
		state := s.state
		s.mu.Unlock()
		return state, false
	}

	if s.index == len(s.questions)-1 {
		s.state = StateCompleted
		timer := s.timer
		s.timer = nil
		result := domain.PlayerResult{
			Name:      s.player.Name,
			AvatarRef: s.player.AvatarRef,
			Score:     s.score,
		}
		s.mu.Unlock()

		if timer != nil {
			timer.Cancel()
		}
		if err := s.deps.Ranking.Append(ctx, result); err != nil {
			log.Printf("append ranking entry: %v", err)
		}
		s.emit(Event{Kind: EventCompleted, Result: &result})
		return StateCompleted, true
	}

	s.index++
	s.locked = false
	index := s.index
	question := s.questions[index]
	s.mu.Unlock()

	s.emit(Event{Kind: EventQuestion, Index: index, Question: &question})
	s.startCountdown()
	return StatePlaying, true
}

// Close tears the session down, canceling any outstanding countdown before
// the caller releases the session. Safe to call in any state and more than
// once.
func (s *Session) Close() {
	s.mu.Lock()
	timer := s.timer
	s.timer = nil
	s.mu.Unlock()
	if timer != nil {
		timer.Cancel()
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// Assertions is the count of correctly answered questions, independent of the
// raw score.
func (s *Session) Assertions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assertions
}

// Current returns the question on display, or false outside Playing.
func (s *Session) Current() (int, domain.PreparedQuestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		return 0, domain.PreparedQuestion{}, false
	}
	return s.index, s.questions[s.index], true
}

func (s *Session) startCountdown() {
	s.mu.Lock()
	index := s.index
	s.remaining = s.seconds
	s.timer = startCountdown(s.seconds, s.interval,
		func(remaining int) { s.handleTick(index, remaining) },
		func() { s.handleExpiry(index) },
	)
	s.mu.Unlock()
}

// handleTick records the remaining time for the question the countdown was
// started for. Ticks for a locked or already-advanced question are dropped.
func (s *Session) handleTick(index, remaining int) {
	s.mu.Lock()
	if s.state != StatePlaying || s.index != index || s.locked {
		s.mu.Unlock()
		return
	}
	s.remaining = remaining
	s.mu.Unlock()
	s.emit(Event{Kind: EventTick, Index: index, Remaining: remaining})
}

// handleExpiry locks the question without awarding score, the equivalent of
// "no answer". The lock from a racing selection takes precedence and makes
// this a no-op.
func (s *Session) handleExpiry(index int) {
	s.mu.Lock()
	if s.state != StatePlaying || s.index != index || s.locked {
		s.mu.Unlock()
		return
	}
	s.locked = true
	s.remaining = 0
	s.mu.Unlock()
	s.emit(Event{Kind: EventLocked, Index: index, Expired: true})
}

func (s *Session) fail(state State, err error) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	kind := EventError
	if state == StateAborted {
		kind = EventAborted
	}
	s.emit(Event{Kind: kind, Err: err})
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		// Drop the oldest update so a slow consumer never blocks the engine.
		select {
		case <-s.events:
		default:
		}
		select {
		case s.events <- ev:
		default:
		}
	}
}

func difficultyBase(difficulty string) int {
	switch difficulty {
	case "easy":
		return 10
	case "medium":
		return 20
	case "hard":
		return 30
	default:
		return 0
	}
}
