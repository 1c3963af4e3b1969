// Package store persists per-symbol candle series as parquet files and reads
// them back for merging. Writes are atomic: data lands in a temp file in the
// target directory and is renamed into place, so an interrupted run never
// leaves a partial file that a resumed run would skip over.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/D9Dre4mer/VNStock-Data/pkg/provider"
)

const parquetExt = ".parquet"

// FilePath returns the canonical output path for a symbol's series.
func FilePath(dir, symbol string) string {
	return filepath.Join(dir, strings.ToUpper(symbol)+parquetExt)
}

// SymbolFromPath recovers the symbol from a file produced by FilePath.
func SymbolFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), parquetExt)
}

// Exists reports whether a non-empty output file is already present for the
// symbol. Zero-byte files are treated as absent so a crashed run's leftovers
// do not mask a symbol.
func Exists(dir, symbol string) bool {
	info, err := os.Stat(FilePath(dir, symbol))
	return err == nil && info.Size() > 0
}

// Write persists candles for a symbol. It refuses empty series: recording
// "no data" is the manifest's job, and an empty file would make the symbol
// look done on the next run.
func Write(dir, symbol string, candles []provider.Candle) error {
	if len(candles) == 0 {
		return fmt.Errorf("store: refusing to write empty series for %s", symbol)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+strings.ToUpper(symbol)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	writer := parquet.NewGenericWriter[provider.Candle](tmp)
	if _, err := writer.Write(candles); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write %s: %w", symbol, err)
	}
	if err := writer.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: finalize %s: %w", symbol, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, FilePath(dir, symbol)); err != nil {
		return fmt.Errorf("store: publish %s: %w", symbol, err)
	}
	return nil
}

// Read loads a symbol's full series from its parquet file.
func Read(dir, symbol string) ([]provider.Candle, error) {
	return ReadFile(FilePath(dir, symbol))
}

// ReadFile loads a candle series from an arbitrary parquet file.
func ReadFile(path string) ([]provider.Candle, error) {
	candles, err := parquet.ReadFile[provider.Candle](path)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	return candles, nil
}

// ListParquet returns the parquet files in dir, sorted by name so downstream
// consumers see symbols in a stable alphabetical order. Temp files from
// in-flight writes are skipped.
func ListParquet(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, parquetExt) || strings.HasPrefix(name, ".") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}
