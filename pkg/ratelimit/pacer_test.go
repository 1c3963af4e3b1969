package ratelimit

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// fakeClock drives a Pacer without real sleeping.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	slept  []time.Duration
	cancel bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel {
		return context.Canceled
	}
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestPacer(interval time.Duration, clock *fakeClock) *Pacer {
	p := NewPacer(interval)
	p.now = clock.Now
	p.sleep = clock.Sleep
	return p
}

func TestPacer_FirstWaitOnlyJitters(t *testing.T) {
	clock := newFakeClock()
	p := newTestPacer(2*time.Second, clock)

	// No prior request: the full-interval wait does not apply. The zero
	// last-request time is far in the past, so only jitter remains.
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}

	if len(clock.slept) != 1 {
		t.Fatalf("expected 1 sleep, got %d", len(clock.slept))
	}
	if clock.slept[0] > maxJitter {
		t.Errorf("first wait slept %v, want at most jitter %v", clock.slept[0], maxJitter)
	}
}

func TestPacer_EnforcesMinimumInterval(t *testing.T) {
	clock := newFakeClock()
	p := newTestPacer(2*time.Second, clock)

	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait() error: %v", err)
	}

	// Second request immediately after: must wait roughly the interval.
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("second Wait() error: %v", err)
	}

	second := clock.slept[1]
	if second < 2*time.Second {
		t.Errorf("second wait %v, want >= interval 2s", second)
	}
	if second > 2*time.Second+maxJitter {
		t.Errorf("second wait %v, want <= interval + jitter", second)
	}
}

func TestPacer_ElapsedIntervalNeedsNoWait(t *testing.T) {
	clock := newFakeClock()
	p := newTestPacer(2*time.Second, clock)

	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}

	clock.advance(5 * time.Second)

	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if clock.slept[1] > maxJitter {
		t.Errorf("wait after elapsed interval slept %v, want at most jitter", clock.slept[1])
	}
}

func TestPacer_ObserveStampsWithoutSleeping(t *testing.T) {
	clock := newFakeClock()
	p := newTestPacer(2*time.Second, clock)

	p.Observe()

	if len(clock.slept) != 0 {
		t.Fatalf("Observe() slept %d times, want 0", len(clock.slept))
	}

	// The stamp taken by Observe makes the next Wait pay the interval.
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if clock.slept[0] < 2*time.Second {
		t.Errorf("wait after Observe slept %v, want >= interval", clock.slept[0])
	}
}

func TestPacer_CancelledContext(t *testing.T) {
	clock := newFakeClock()
	clock.cancel = true
	p := newTestPacer(time.Second, clock)

	if err := p.Wait(context.Background()); err != context.Canceled {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestPacer_ConcurrentWaitersNeverBurst(t *testing.T) {
	clock := newFakeClock()
	p := newTestPacer(time.Second, clock)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Wait(context.Background())
		}()
	}
	wg.Wait()

	// Workers after the first must each see at least the full interval;
	// the mutex serializes the check-sleep-stamp section.
	for i, d := range clock.slept[1:] {
		if d < time.Second {
			t.Errorf("sleep %d was %v, want >= 1s", i+1, d)
		}
	}
}

func TestCountdown_ZeroDurationReturnsImmediately(t *testing.T) {
	logger := testLogger()

	start := time.Now()
	if err := Countdown(context.Background(), logger, 0, "VCB"); err != nil {
		t.Fatalf("Countdown() error: %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Countdown with zero duration should not block")
	}
}

func TestCountdown_CancelledContext(t *testing.T) {
	logger := testLogger()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Countdown(ctx, logger, 10*time.Second, "VCB")
	if err != context.Canceled {
		t.Errorf("Countdown() error = %v, want context.Canceled", err)
	}
}
