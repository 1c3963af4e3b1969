// vnstock-merge flattens a directory of per-symbol parquet files into one
// CSV, optionally tagging each row with its source symbol.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/D9Dre4mer/VNStock-Data/internal/cli"
	"github.com/D9Dre4mer/VNStock-Data/pkg/merge"
)

func main() {
	flags := pflag.NewFlagSet("vnstock-merge", pflag.ExitOnError)
	flags.String("input", "data/eod_parquet", "directory of per-symbol parquet files")
	flags.String("output", "data/all_symbols.csv", "merged CSV output file")
	flags.Bool("no-symbol", false, "omit the symbol column")
	v := cli.CommonFlags(flags)

	v, logger, err := cli.Setup("merge", flags, v, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.StartMetrics(v.GetString("metrics-addr"), logger)

	stats, err := merge.Merge(ctx, v.GetString("input"), v.GetString("output"), !v.GetBool("no-symbol"), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("merge failed")
	}

	logger.Info().
		Int("files", stats.Files).
		Int("rows", stats.Rows).
		Int("skipped", stats.Skipped).
		Str("output", v.GetString("output")).
		Msg("merge complete")

	if stats.Skipped > 0 {
		for _, f := range stats.SkippedFiles {
			logger.Warn().Str("file", f).Msg("file skipped during merge")
		}
	}
}
