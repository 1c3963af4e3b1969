// vnstock-symbols builds the symbol catalog: every 3-letter ticker on
// HOSE/HNX/UPCOM with exchange, industry, corporate family and company name,
// optionally verified against recent trading activity.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/D9Dre4mer/VNStock-Data/internal/cli"
	"github.com/D9Dre4mer/VNStock-Data/pkg/provider"
	"github.com/D9Dre4mer/VNStock-Data/pkg/symbols"
)

// saveEvery is how many probed symbols go between incremental catalog saves,
// so an interrupted active check loses at most a few probes of work.
const saveEvery = 20

func main() {
	flags := pflag.NewFlagSet("vnstock-symbols", pflag.ExitOnError)
	flags.String("output", "active_stocks.csv", "catalog output file")
	flags.Bool("no-check-trading", false, "skip the per-symbol trading activity probe")
	flags.Int("days-back", symbols.DefaultActiveWindowDays, "activity window for the trading probe, in days")
	flags.String("families", "vietnam_stock_families.csv", "family mapping CSV")
	flags.Float64("sleep", 2.0, "minimum seconds between probe requests")
	v := cli.CommonFlags(flags)

	v, logger, err := cli.Setup("symbols", flags, v, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.StartMetrics(v.GetString("metrics-addr"), logger)

	client, err := provider.New(provider.Config{
		UserAgent: cli.UserAgent,
		Cache:     cli.OpenCache(ctx, v.GetString("redis-url"), logger),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("creating provider client")
	}

	families, err := symbols.LoadFamilies(v.GetString("families"))
	if err != nil {
		logger.Fatal().Err(err).Msg("loading family map")
	}
	logger.Info().Int("families", len(families)).Msg("family map loaded")

	rows, err := symbols.NewBuilder(client, families, logger).Build(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("building catalog")
	}

	output := v.GetString("output")

	existing, err := symbols.LoadExisting(output)
	if err != nil {
		logger.Fatal().Err(err).Msg("loading previous catalog")
	}
	rows = symbols.MergeExisting(rows, existing)

	checkTrading := !v.GetBool("no-check-trading")
	if checkTrading {
		checker := symbols.NewActiveChecker(
			client,
			time.Duration(v.GetFloat64("sleep")*float64(time.Second)),
			v.GetInt("days-back"),
			logger,
		)
		rows, err = probeActivity(ctx, checker, rows, output, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("trading activity probe interrupted")
		}
	}

	if err := symbols.WriteCSV(output, rows, checkTrading); err != nil {
		logger.Fatal().Err(err).Msg("writing catalog")
	}
	logger.Info().Int("symbols", len(rows)).Str("output", output).Msg("catalog written")
}

// probeActivity keeps only symbols that traded inside the activity window,
// saving the catalog incrementally so an aborted run keeps its progress.
func probeActivity(ctx context.Context, checker *symbols.ActiveChecker, rows []symbols.Info, output string, logger zerolog.Logger) ([]symbols.Info, error) {
	active := make([]symbols.Info, 0, len(rows))

	for i, row := range rows {
		ok, lastTrade, err := checker.Check(ctx, row.Symbol)
		if err != nil {
			return active, err
		}
		if ok {
			row.LastTradeDate = lastTrade
			active = append(active, row)
		} else {
			logger.Debug().Str("symbol", row.Symbol).Msg("no recent trades, dropping")
		}

		probed := i + 1
		if probed%saveEvery == 0 {
			if err := symbols.WriteCSV(output, active, true); err != nil {
				logger.Warn().Err(err).Msg("incremental catalog save failed")
			}
			logger.Info().
				Int("probed", probed).
				Int("total", len(rows)).
				Int("active", len(active)).
				Msg("activity probe progress")
		}
	}
	return active, nil
}
