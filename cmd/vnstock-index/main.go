// vnstock-index downloads end-of-day history for a single benchmark index
// (VN30 by default) using the same paced, retrying fetch loop as the bulk
// downloader.
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
	flags := pflag.NewFlagSet("vnstock-index", pflag.ExitOnError)
	flags.String("symbol", "VN30", "index symbol to download")
	flags.String("start", "1990-01-01", "range start (YYYY-MM-DD)")
	flags.String("end", "", "range end (YYYY-MM-DD, default today)")
	flags.String("out", "data/index_parquet", "output directory")
	flags.Float64("sleep", 2.0, "minimum seconds between requests")
	flags.Bool("force", false, "re-download even when output exists")
	v := cli.CommonFlags(flags)

	v, logger, err := cli.Setup("index", flags, v, os.Args[1:])
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

	cfg := fetch.Config{
		Start:  v.GetString("start"),
		End:    end,
		OutDir: v.GetString("out"),
		Sleep:  time.Duration(v.GetFloat64("sleep") * float64(time.Second)),
		Force:  v.GetBool("force"),
	}
	reporter := manifest.NewReporter()
	runner := fetch.NewRunner(client, cfg, reporter, logger)

	symbol := v.GetString("symbol")
	runErr := runner.Run(ctx, []string{symbol})

	if err := reporter.WriteManifest(cfg.OutDir); err != nil {
		logger.Error().Err(err).Msg("writing manifest")
	}

	if runErr != nil {
		logger.Error().Err(runErr).Msg("run aborted")
		os.Exit(1)
	}
	summary := reporter.Summary()
	if summary[manifest.StatusFailed] > 0 || summary[manifest.StatusEmpty] > 0 {
		logger.Error().Str("symbol", symbol).Msg("index download did not produce data")
		os.Exit(1)
	}
	logger.Info().Str("symbol", symbol).Msg("index download complete")
}
