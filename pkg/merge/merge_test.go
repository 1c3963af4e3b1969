package merge

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/D9Dre4mer/VNStock-Data/pkg/provider"
	"github.com/D9Dre4mer/VNStock-Data/pkg/store"
)

func writeSeries(t *testing.T, dir, symbol string, times ...string) {
	t.Helper()
	candles := make([]provider.Candle, len(times))
	for i, ts := range times {
		candles[i] = provider.Candle{Time: ts, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 1000}
	}
	require.NoError(t, store.Write(dir, symbol, candles))
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestMerge_WithSymbolColumn(t *testing.T) {
	inDir := t.TempDir()
	writeSeries(t, inDir, "VCB", "2024-01-02", "2024-01-03")
	writeSeries(t, inDir, "AAA", "2024-01-02")

	out := filepath.Join(t.TempDir(), "all.csv")
	stats, err := Merge(context.Background(), inDir, out, true, zerolog.New(io.Discard))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 3, stats.Rows)
	assert.Zero(t, stats.Skipped)

	rows := readCSV(t, out)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"time", "open", "high", "low", "close", "volume", "symbol"}, rows[0])
	// Files merge in alphabetical order, rows keep their file order.
	assert.Equal(t, "AAA", rows[1][6])
	assert.Equal(t, "VCB", rows[2][6])
	assert.Equal(t, "2024-01-02", rows[2][0])
	assert.Equal(t, "2024-01-03", rows[3][0])
}

func TestMerge_WithoutSymbolColumn(t *testing.T) {
	inDir := t.TempDir()
	writeSeries(t, inDir, "VCB", "2024-01-02")

	out := filepath.Join(t.TempDir(), "all.csv")
	_, err := Merge(context.Background(), inDir, out, false, zerolog.New(io.Discard))
	require.NoError(t, err)

	rows := readCSV(t, out)
	assert.Equal(t, []string{"time", "open", "high", "low", "close", "volume"}, rows[0])
	require.Len(t, rows[1], 6)
}

func TestMerge_SkipsUnreadableFiles(t *testing.T) {
	inDir := t.TempDir()
	writeSeries(t, inDir, "VCB", "2024-01-02")
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "BAD.parquet"), []byte("not parquet"), 0o644))

	out := filepath.Join(t.TempDir(), "all.csv")
	stats, err := Merge(context.Background(), inDir, out, true, zerolog.New(io.Discard))
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, 1, stats.Skipped)
	require.Len(t, stats.SkippedFiles, 1)
	assert.Contains(t, stats.SkippedFiles[0], "BAD.parquet")

	rows := readCSV(t, out)
	assert.Len(t, rows, 2)
}

func TestMerge_EmptyInputDirFails(t *testing.T) {
	out := filepath.Join(t.TempDir(), "all.csv")
	_, err := Merge(context.Background(), t.TempDir(), out, true, zerolog.New(io.Discard))
	require.Error(t, err)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no output should be created on failure")
}

func TestMerge_CreatesOutputDir(t *testing.T) {
	inDir := t.TempDir()
	writeSeries(t, inDir, "VCB", "2024-01-02")

	out := filepath.Join(t.TempDir(), "nested", "deeper", "all.csv")
	_, err := Merge(context.Background(), inDir, out, true, zerolog.New(io.Discard))
	require.NoError(t, err)

	_, statErr := os.Stat(out)
	assert.NoError(t, statErr)
}

func TestMerge_CancelledContext(t *testing.T) {
	inDir := t.TempDir()
	writeSeries(t, inDir, "VCB", "2024-01-02")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := filepath.Join(t.TempDir(), "all.csv")
	_, err := Merge(ctx, inDir, out, true, zerolog.New(io.Discard))
	assert.ErrorIs(t, err, context.Canceled)
}
