package app

import (
	"sync"
	"testing"
	"time"
)

func TestCountdownTickSequence(t *testing.T) {
	var mu sync.Mutex
	var ticks []int
	expires := 0
	done := make(chan struct{})

	startCountdown(30, time.Millisecond,
		func(remaining int) {
			mu.Lock()
			ticks = append(ticks, remaining)
			mu.Unlock()
		},
		func() {
			mu.Lock()
			expires++
			mu.Unlock()
			close(done)
		},
	)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("countdown never expired")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ticks) != 30 {
		t.Fatalf("expected 30 ticks, got %d", len(ticks))
	}
	for i, remaining := range ticks {
		if want := 29 - i; remaining != want {
			t.Fatalf("tick %d: expected remaining %d, got %d", i, want, remaining)
		}
	}
	if expires != 1 {
		t.Fatalf("expected exactly one expiry, got %d", expires)
	}
}

func TestCancelStopsCallbacks(t *testing.T) {
	var mu sync.Mutex
	ticks := 0
	expires := 0

	c := startCountdown(1000, 10*time.Millisecond,
		func(int) {
			mu.Lock()
			ticks++
			mu.Unlock()
		},
		func() {
			mu.Lock()
			expires++
			mu.Unlock()
		},
	)

	time.Sleep(55 * time.Millisecond)
	c.Cancel()

	mu.Lock()
	seen := ticks
	mu.Unlock()
	if seen == 0 {
		t.Fatalf("expected some ticks before cancel")
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if ticks != seen {
		t.Fatalf("ticks continued after cancel: %d -> %d", seen, ticks)
	}
	if expires != 0 {
		t.Fatalf("expiry fired on a canceled countdown")
	}
}

func TestCancelAfterExpiryIsNoOp(t *testing.T) {
	done := make(chan struct{})
	c := startCountdown(1, time.Millisecond, func(int) {}, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("countdown never expired")
	}

	c.Cancel()
	c.Cancel()
}
