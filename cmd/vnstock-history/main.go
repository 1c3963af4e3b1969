// vnstock-history downloads end-of-day OHLCV history for every listed
// 3-letter symbol into per-symbol parquet files, resuming past runs by
// skipping symbols whose output already exists.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/D9Dre4mer/VNStock-Data/internal/cli"
	"github.com/D9Dre4mer/VNStock-Data/pkg/fetch"
	"github.com/D9Dre4mer/VNStock-Data/pkg/manifest"
	"github.com/D9Dre4mer/VNStock-Data/pkg/provider"
)

func main() {
	flags := pflag.NewFlagSet("vnstock-history", pflag.ExitOnError)
	flags.String("start", "1990-01-01", "range start (YYYY-MM-DD)")
	flags.String("end", "", "range end (YYYY-MM-DD, default today)")
	flags.String("out", "data/eod_parquet", "output directory")
	flags.Int("workers", 1, "concurrent download workers")
	flags.Float64("sleep", 2.0, "minimum seconds between requests")
	flags.Bool("force", false, "re-download symbols whose output already exists")
	v := cli.CommonFlags(flags)

	v, logger, err := cli.Setup("history", flags, v, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.StartMetrics(v.GetString("metrics-addr"), logger)

	end := v.GetString("end")
	if end == "" {
		end = cli.Today()
	}

	client, err := provider.New(provider.Config{
		UserAgent: cli.UserAgent,
		Cache:     cli.OpenCache(ctx, v.GetString("redis-url"), logger),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("creating provider client")
	}

	listed, err := client.AllSymbols(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("listing symbols")
	}
	symbols := make([]string, 0, len(listed))
	for _, s := range listed {
		if len(s.Symbol) == 3 {
			symbols = append(symbols, s.Symbol)
		}
	}
	logger.Info().
		Int("symbols", len(symbols)).
		Str("start", v.GetString("start")).
		Str("end", end).
		Msg("starting download")

	cfg := fetch.Config{
		Start:   v.GetString("start"),
		End:     end,
		OutDir:  v.GetString("out"),
		Workers: v.GetInt("workers"),
		Sleep:   time.Duration(v.GetFloat64("sleep") * float64(time.Second)),
		Force:   v.GetBool("force"),
	}
	reporter := manifest.NewReporter()
	runner := fetch.NewRunner(client, cfg, reporter, logger)

	runErr := runner.Run(ctx, symbols)

	if err := reporter.WriteManifest(cfg.OutDir); err != nil {
		logger.Error().Err(err).Msg("writing manifest")
	}
	if err := reporter.WriteFailed(cfg.OutDir); err != nil {
		logger.Error().Err(err).Msg("writing failed list")
	}

	summary := reporter.Summary()
	logger.Info().
		Int("success", summary[manifest.StatusSuccess]).
		Int("skipped", summary[manifest.StatusSkipped]).
		Int("empty", summary[manifest.StatusEmpty]).
		Int("failed", summary[manifest.StatusFailed]).
		Msg("run complete")

	if runErr != nil {
		logger.Error().Err(runErr).Msg("run aborted")
		os.Exit(1)
	}
	if summary[manifest.StatusFailed] > 0 {
		os.Exit(1)
	}
}
