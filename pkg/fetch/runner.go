// Package fetch drives the resumable per-symbol download loop: a worker pool
// pulls symbols from a shared queue, paces requests through one rate limiter,
// retries on provider back-pressure, and records every outcome in the run
// manifest.
package fetch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/D9Dre4mer/VNStock-Data/pkg/manifest"
	"github.com/D9Dre4mer/VNStock-Data/pkg/provider"
	"github.com/D9Dre4mer/VNStock-Data/pkg/ratelimit"
	"github.com/D9Dre4mer/VNStock-Data/pkg/store"
)

const (
	// DefaultMaxAttempts bounds retries when the provider keeps answering
	// with rate-limit errors.
	DefaultMaxAttempts = 5
	// DefaultSleep is the minimum spacing between requests.
	DefaultSleep = 2 * time.Second

	// rateLimitWaitBuffer is added on top of the provider's wait hint so the
	// retry lands comfortably after the window resets.
	rateLimitWaitBuffer = 5 * time.Second
	// rateLimitFallbackBase seeds the exponential backoff used when the
	// provider gives no usable wait hint.
	rateLimitFallbackBase = 15 * time.Second

	// transientRetries is how many extra attempts a non-rate-limit error
	// gets before the symbol is marked failed.
	transientRetries = 1
)

// Quoter is the slice of the provider client the runner needs.
type Quoter interface {
	History(ctx context.Context, symbol, start, end string) ([]provider.Candle, error)
}

// Config controls one download run.
type Config struct {
	Start   string
	End     string
	OutDir  string
	Workers int
	Sleep   time.Duration
	Force   bool

	// MaxAttempts overrides DefaultMaxAttempts when > 0.
	MaxAttempts int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Sleep <= 0 {
		c.Sleep = DefaultSleep
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

// Runner downloads history for a set of symbols.
type Runner struct {
	quoter   Quoter
	cfg      Config
	pacer    *ratelimit.Pacer
	reporter *manifest.Reporter
	logger   zerolog.Logger

	// Running totals for progress logging.
	okCount   atomic.Int64
	failCount atomic.Int64

	// Injectable for tests; real runs sleep for real.
	pace      func(ctx context.Context) error
	observe   func()
	countdown func(ctx context.Context, d time.Duration, symbol string) error
	sleep     func(ctx context.Context, d time.Duration) error
	writeFile func(dir, symbol string, candles []provider.Candle) error
	exists    func(dir, symbol string) bool
}

// NewRunner builds a runner. The reporter is shared with the caller, which
// writes the manifest files after Run returns.
func NewRunner(quoter Quoter, cfg Config, reporter *manifest.Reporter, logger zerolog.Logger) *Runner {
	cfg = cfg.withDefaults()
	r := &Runner{
		quoter:   quoter,
		cfg:      cfg,
		pacer:    ratelimit.NewPacer(cfg.Sleep),
		reporter: reporter,
		logger:   logger,
	}
	r.pace = r.pacer.Wait
	r.observe = r.pacer.Observe
	r.countdown = func(ctx context.Context, d time.Duration, symbol string) error {
		return ratelimit.Countdown(ctx, r.logger, d, symbol)
	}
	r.sleep = sleepContext
	r.writeFile = store.Write
	r.exists = store.Exists
	return r
}

// Run fetches all symbols, fanning out across cfg.Workers goroutines. It
// returns the first context error; individual symbol failures are recorded in
// the reporter, not returned.
func (r *Runner) Run(ctx context.Context, symbols []string) error {
	jobs := make(chan string)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for _, symbol := range symbols {
			select {
			case jobs <- symbol:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < r.cfg.Workers; i++ {
		g.Go(func() error {
			for symbol := range jobs {
				if err := r.process(ctx, symbol); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}

// attemptStatus is the outcome of one fetch attempt.
type attemptStatus int

const (
	attemptSuccess attemptStatus = iota
	attemptEmpty
	attemptRateLimited
	attemptFailed
)

// attemptResult carries one attempt's outcome; the retry loop in process is
// a plain iteration over these.
type attemptResult struct {
	status  attemptStatus
	candles []provider.Candle
	wait    time.Duration // rate-limited only; zero when no hint was given
	err     error
}

// attempt performs a single paced fetch. The returned error is non-nil only
// when the context is done.
func (r *Runner) attempt(ctx context.Context, symbol string) (attemptResult, error) {
	if err := r.pace(ctx); err != nil {
		return attemptResult{}, err
	}

	candles, err := r.quoter.History(ctx, symbol, r.cfg.Start, r.cfg.End)
	if err == nil {
		if len(candles) == 0 {
			return attemptResult{status: attemptEmpty}, nil
		}
		return attemptResult{status: attemptSuccess, candles: candles}, nil
	}
	if ctx.Err() != nil {
		return attemptResult{}, ctx.Err()
	}

	if sig := ratelimit.Classify(err); sig.RateLimited {
		return attemptResult{status: attemptRateLimited, wait: sig.Wait, err: err}, nil
	}
	return attemptResult{status: attemptFailed, err: err}, nil
}

// process handles one symbol end to end. It returns an error only when the
// context is done; ordinary failures become manifest records.
func (r *Runner) process(ctx context.Context, symbol string) error {
	log := r.logger.With().Str("symbol", symbol).Logger()

	if !r.cfg.Force && r.exists(r.cfg.OutDir, symbol) {
		log.Debug().Msg("output exists, skipping")
		r.record(symbol, manifest.StatusSkipped, 0, "output exists")
		return nil
	}

	transientLeft := transientRetries
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		res, err := r.attempt(ctx, symbol)
		if err != nil {
			return err
		}

		switch res.status {
		case attemptSuccess:
			return r.persist(log, symbol, res.candles)

		case attemptEmpty:
			log.Warn().Msg("provider returned no data")
			r.record(symbol, manifest.StatusEmpty, 0, "no data returned")
			return nil

		case attemptRateLimited:
			lastErr = res.err
			retriesTotal.WithLabelValues("rate_limit").Inc()
			wait := rateLimitFallbackBase * (1 << (attempt - 1))
			if res.wait > 0 {
				wait = res.wait + rateLimitWaitBuffer
			}
			log.Warn().
				Int("attempt", attempt).
				Dur("wait", wait).
				Msg("rate limited, backing off")
			if err := r.countdown(ctx, wait, symbol); err != nil {
				return err
			}
			r.observe()

		case attemptFailed:
			lastErr = res.err
			if transientLeft > 0 {
				transientLeft--
				retriesTotal.WithLabelValues("transient").Inc()
				log.Warn().Err(res.err).Msg("request failed, retrying once")
				if err := r.sleep(ctx, r.cfg.Sleep); err != nil {
					return err
				}
				continue
			}
			log.Error().Err(res.err).Int("attempt", attempt).Msg("giving up on symbol")
			r.record(symbol, manifest.StatusFailed, 0, res.err.Error())
			return nil
		}
	}

	detail := fmt.Sprintf("rate limited after %d attempts", r.cfg.MaxAttempts)
	if lastErr != nil {
		detail = fmt.Sprintf("%s: %s", detail, lastErr.Error())
	}
	log.Error().Int("attempts", r.cfg.MaxAttempts).Msg("retries exhausted")
	r.record(symbol, manifest.StatusFailed, 0, detail)
	return nil
}

func (r *Runner) persist(log zerolog.Logger, symbol string, candles []provider.Candle) error {
	if err := r.writeFile(r.cfg.OutDir, symbol, candles); err != nil {
		log.Error().Err(err).Msg("writing output failed")
		r.record(symbol, manifest.StatusFailed, 0, err.Error())
		return nil
	}

	first, last := candles[0].Time, candles[len(candles)-1].Time
	detail := fmt.Sprintf("OK: %s -> %s", first, last)
	log.Info().Int("rows", len(candles)).Str("range", first+" -> "+last).Msg("saved")
	r.record(symbol, manifest.StatusSuccess, len(candles), detail)
	return nil
}

func (r *Runner) record(symbol string, status manifest.Status, rows int, detail string) {
	resultsTotal.WithLabelValues(string(status)).Inc()
	switch status {
	case manifest.StatusSuccess, manifest.StatusSkipped:
		r.okCount.Add(1)
	case manifest.StatusEmpty, manifest.StatusFailed:
		r.failCount.Add(1)
	}
	r.reporter.Record(symbol, status, rows, detail)
	r.logger.Info().
		Str("symbol", symbol).
		Str("status", string(status)).
		Int64("ok", r.okCount.Load()).
		Int64("fail", r.failCount.Load()).
		Msg("progress")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
