// Package merge combines per-symbol parquet files into a single CSV for
// consumers that want one flat table.
package merge

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/D9Dre4mer/VNStock-Data/pkg/store"
)

// Stats summarizes one merge run.
type Stats struct {
	Files        int
	Skipped      int
	Rows         int
	SkippedFiles []string
}

// Merge reads every parquet file in inputDir (alphabetical order) and writes
// all rows to outputFile as CSV. When withSymbol is true, a trailing symbol
// column derived from each file name is added. Unreadable files are skipped
// with a warning rather than aborting the merge. The output is written to a
// temp file and renamed into place.
func Merge(ctx context.Context, inputDir, outputFile string, withSymbol bool, logger zerolog.Logger) (Stats, error) {
	var stats Stats

	files, err := store.ListParquet(inputDir)
	if err != nil {
		return stats, err
	}
	if len(files) == 0 {
		return stats, fmt.Errorf("merge: no parquet files in %s", inputDir)
	}

	outDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return stats, fmt.Errorf("merge: create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(outDir, "."+filepath.Base(outputFile)+".*.tmp")
	if err != nil {
		return stats, fmt.Errorf("merge: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	header := []string{"time", "open", "high", "low", "close", "volume"}
	if withSymbol {
		header = append(header, "symbol")
	}
	if err := w.Write(header); err != nil {
		tmp.Close()
		return stats, fmt.Errorf("merge: write header: %w", err)
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			tmp.Close()
			return stats, err
		}

		candles, err := store.ReadFile(file)
		if err != nil {
			logger.Warn().Err(err).Str("file", file).Msg("skipping unreadable file")
			stats.Skipped++
			stats.SkippedFiles = append(stats.SkippedFiles, file)
			continue
		}

		symbol := store.SymbolFromPath(file)
		for _, c := range candles {
			row := []string{
				c.Time,
				formatFloat(c.Open),
				formatFloat(c.High),
				formatFloat(c.Low),
				formatFloat(c.Close),
				formatFloat(c.Volume),
			}
			if withSymbol {
				row = append(row, symbol)
			}
			if err := w.Write(row); err != nil {
				tmp.Close()
				return stats, fmt.Errorf("merge: write row: %w", err)
			}
		}
		stats.Files++
		stats.Rows += len(candles)
		logger.Debug().Str("symbol", symbol).Int("rows", len(candles)).Msg("merged")
	}

	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return stats, fmt.Errorf("merge: flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return stats, fmt.Errorf("merge: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, outputFile); err != nil {
		return stats, fmt.Errorf("merge: publish %s: %w", outputFile, err)
	}
	return stats, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
