package ratelimiter

import (
	"testing"
	"time"
)

func TestNewRejectsInvalidArgs(t *testing.T) {
	if New(0, 1, 0) != nil || New(1, 0, 0) != nil {
		t.Fatal("expected nil limiter for invalid args")
	}
	var l *MapLimiter
	if !l.Allow("k", time.Now()) {
		t.Fatal("nil limiter must allow")
	}
}

func TestAllowEnforcesBurstPerKey(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(1, 2, time.Minute)
	if !l.Allow("a", now) || !l.Allow("a", now) {
		t.Fatal("expected burst of 2 to pass")
	}
	if l.Allow("a", now) {
		t.Fatal("expected third request to be limited")
	}
	if !l.Allow("b", now) {
		t.Fatal("other keys must have their own bucket")
	}
	if !l.Allow("a", now.Add(time.Second)) {
		t.Fatal("expected refill after one second")
	}
}

func TestIdleKeysAreEvicted(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(1000, 1000, time.Minute)
	l.Allow("stale", now)
	later := now.Add(2 * time.Minute)
	for i := 0; i < sweepEvery; i++ {
		l.Allow("fresh", later)
	}
	l.mu.Lock()
	got := len(l.byKey)
	l.mu.Unlock()
	if got != 1 {
		t.Fatalf("expected only fresh key tracked, got %d", got)
	}
}
