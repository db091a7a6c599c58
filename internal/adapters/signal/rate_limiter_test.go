package signal

import (
	"testing"
	"time"
)

func TestConnectLimiterSlidingWindow(t *testing.T) {
	rl := NewConnectLimiter(2, time.Minute)
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two attempts must pass")
	}
	if rl.Allow("a") {
		t.Fatal("third attempt inside the window must fail")
	}
	if !rl.Allow("b") {
		t.Fatal("keys are independent")
	}

	clock = clock.Add(61 * time.Second)
	if !rl.Allow("a") {
		t.Fatal("window did not slide")
	}
}

func TestConnectLimiterDisabled(t *testing.T) {
	rl := NewConnectLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		if !rl.Allow("a") {
			t.Fatal("zero limit must disable limiting")
		}
	}
}

func TestConnectLimiterSweep(t *testing.T) {
	rl := NewConnectLimiter(5, time.Second)
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	rl.Allow("old")
	clock = clock.Add(time.Minute)
	rl.sweep(clock.Add(-time.Second))
	if _, ok := rl.history["old"]; ok {
		t.Fatal("expired key kept")
	}
}

func TestConnectLimiterSweepKeepsLiveHistory(t *testing.T) {
	rl := NewConnectLimiter(3, time.Minute)
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	rl.now = func() time.Time { return clock }

	for _, at := range []time.Duration{0, 30 * time.Second, 31 * time.Second} {
		clock = start.Add(at)
		if !rl.Allow("a") {
			t.Fatalf("attempt at +%v denied", at)
		}
	}

	clock = start.Add(61 * time.Second)
	rl.sweep(clock.Add(-rl.interval))
	if got := len(rl.history["a"]); got != 2 {
		t.Fatalf("history after sweep = %v", rl.history["a"])
	}
	if !rl.Allow("a") {
		t.Fatal("third attempt inside the window denied after sweep")
	}
	if rl.Allow("a") {
		t.Fatal("fourth attempt inside the window allowed")
	}
}
