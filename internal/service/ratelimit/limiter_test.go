package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterRefill(t *testing.T) {
	l := New(2, 1)
	clock := time.Unix(0, 0)
	l.now = func() time.Time { return clock }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("bucket should start full")
	}
	if l.Allow("a") {
		t.Fatal("third call should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("keys must not share buckets")
	}
	clock = clock.Add(time.Second)
	if !l.Allow("a") {
		t.Fatal("one token should refill after a second")
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 10; i++ {
		if !l.Allow("x") {
			t.Fatal("disabled limiter must allow everything")
		}
	}
}
