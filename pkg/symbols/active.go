package symbols

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/D9Dre4mer/VNStock-Data/pkg/provider"
	"github.com/D9Dre4mer/VNStock-Data/pkg/ratelimit"
)

// DefaultActiveWindowDays is how far back the liveness probe looks for a
// trade. A symbol with no candle inside the window is considered delisted or
// suspended.
const DefaultActiveWindowDays = 90

// Quoter is the history slice of the provider client used by the probe.
type Quoter interface {
	History(ctx context.Context, symbol, start, end string) ([]provider.Candle, error)
}

// ActiveChecker probes recent history to decide whether a symbol still
// trades. Probes share a pacer so the checker is as polite to the provider
// as the main download loop.
type ActiveChecker struct {
	quoter     Quoter
	pace       func(ctx context.Context) error
	windowDays int
	logger     zerolog.Logger
	now        func() time.Time
}

// NewActiveChecker creates a checker probing the last windowDays days;
// windowDays <= 0 selects DefaultActiveWindowDays.
func NewActiveChecker(quoter Quoter, interval time.Duration, windowDays int, logger zerolog.Logger) *ActiveChecker {
	if windowDays <= 0 {
		windowDays = DefaultActiveWindowDays
	}
	return &ActiveChecker{
		quoter:     quoter,
		pace:       ratelimit.NewPacer(interval).Wait,
		windowDays: windowDays,
		logger:     logger,
		now:        time.Now,
	}
}

// Check reports whether the symbol traded inside the window, and the date of
// its most recent candle when it did. Probe errors and empty results both
// mean inactive; the probe never retries, a wrong "inactive" answer only
// costs a re-run.
func (c *ActiveChecker) Check(ctx context.Context, symbol string) (active bool, lastTrade string, err error) {
	if err := c.pace(ctx); err != nil {
		return false, "", err
	}

	end := c.now()
	start := end.AddDate(0, 0, -c.windowDays)

	candles, err := c.quoter.History(ctx, symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		if ctx.Err() != nil {
			return false, "", ctx.Err()
		}
		c.logger.Debug().Err(err).Str("symbol", symbol).Msg("probe failed, marking inactive")
		return false, "", nil
	}
	if len(candles) == 0 {
		return false, "", nil
	}
	return true, candles[len(candles)-1].Time, nil
}
