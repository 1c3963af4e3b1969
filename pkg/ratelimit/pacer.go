package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for request pacing and cooldowns.
var (
	pacerWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vnstock_pacer_wait_seconds",
		Help:    "Time spent waiting for the minimum request interval",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	cooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vnstock_rate_limit_cooldowns_total",
		Help: "Total number of rate-limit cooldowns observed",
	})

	cooldownSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vnstock_rate_limit_cooldown_seconds",
		Help:    "Duration of rate-limit cooldowns",
		Buckets: []float64{5, 15, 30, 60, 120, 300},
	})
)

// maxJitter is added to every paced wait so request timing does not form a
// detectable pattern.
const maxJitter = 500 * time.Millisecond

// Pacer enforces a minimum spacing between provider requests. All workers
// share one Pacer; a single mutex guards the last-request timestamp, so
// concurrent workers can never burst past the configured interval. The
// network call itself happens outside the Pacer.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a pacer with the given minimum request interval.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Wait blocks until the minimum interval since the last request has elapsed,
// plus a small random jitter, then records the current time as the new
// last-request timestamp. The mutex is held across the sleep so only one
// worker is ever inside the check-sleep-stamp section.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	wait := p.interval - p.now().Sub(p.last)
	if wait < 0 {
		wait = 0
	}
	wait += time.Duration(rand.Int63n(int64(maxJitter)))

	pacerWaitSeconds.Observe(wait.Seconds())
	if err := p.sleep(ctx, wait); err != nil {
		return err
	}

	p.last = p.now()
	return nil
}

// Observe stamps the current time as the last-request time without waiting.
// Called after an externally imposed cooldown so the next Wait measures from
// the end of the cooldown, not from the request that triggered it.
func (p *Pacer) Observe() {
	p.mu.Lock()
	p.last = p.now()
	p.mu.Unlock()
}

// Countdown blocks for the given cooldown duration, logging the remaining
// time once per second so an operator watching the console can see progress.
// Returns early with the context error when the run is cancelled.
func Countdown(ctx context.Context, logger zerolog.Logger, d time.Duration, symbol string) error {
	if d <= 0 {
		return nil
	}

	cooldownsTotal.Inc()
	cooldownSeconds.Observe(d.Seconds())

	logger.Info().
		Str("symbol", symbol).
		Dur("wait", d).
		Msg("Rate limited - cooling down")

	deadline := time.Now().Add(d)
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			logger.Info().Str("symbol", symbol).Msg("Cooldown complete")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			logger.Debug().
				Str("symbol", symbol).
				Dur("remaining", remaining.Truncate(time.Second)).
				Msg("Cooldown in progress")
		}
	}
}

// sleepContext sleeps for d with context cancellation support.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
