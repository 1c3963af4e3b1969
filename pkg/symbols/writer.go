package symbols

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// csvHeader is the catalog column order. The last-trade column only appears
// when the rows carry trade dates (the active check ran).
var csvHeader = []string{"symbol", "exchange", "industry", "ecosystem", "organ_name"}

const lastTradeColumn = "last_trade_date"

// WriteCSV writes catalog rows to path atomically, overwriting any previous
// file. withLastTrade adds the last_trade_date column.
func WriteCSV(path string, rows []Info, withLastTrade bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("symbols: create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("symbols: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	header := csvHeader
	if withLastTrade {
		header = append(append([]string{}, csvHeader...), lastTradeColumn)
	}
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("symbols: write header: %w", err)
	}
	for _, row := range rows {
		record := []string{row.Symbol, row.Exchange, row.Industry, row.Ecosystem, row.OrganName}
		if withLastTrade {
			record = append(record, row.LastTradeDate)
		}
		if err := w.Write(record); err != nil {
			tmp.Close()
			return fmt.Errorf("symbols: write row %s: %w", row.Symbol, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("symbols: flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("symbols: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("symbols: publish %s: %w", path, err)
	}
	return nil
}

// LoadExisting reads a previously written catalog CSV. A missing file yields
// an empty map. Extra columns are ignored so older and newer file versions
// both load.
func LoadExisting(path string) (map[string]Info, error) {
	out := make(map[string]Info)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return nil, fmt.Errorf("symbols: open existing catalog: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		return nil, fmt.Errorf("symbols: read existing catalog: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("symbols: read existing catalog: %w", err)
		}
		info := Info{
			Symbol:        field(record, "symbol"),
			Exchange:      field(record, "exchange"),
			Industry:      field(record, "industry"),
			Ecosystem:     field(record, "ecosystem"),
			OrganName:     field(record, "organ_name"),
			LastTradeDate: field(record, lastTradeColumn),
		}
		if info.Symbol == "" {
			continue
		}
		out[info.Symbol] = info
	}
	return out, nil
}

// MergeExisting pre-fills gaps in fresh rows from a previous catalog: where a
// fresh row says Unknown (or has no organ name) and the old file knew better,
// the old value wins. Re-runs only ever improve data.
func MergeExisting(rows []Info, existing map[string]Info) []Info {
	for i, row := range rows {
		old, ok := existing[row.Symbol]
		if !ok {
			continue
		}
		if (row.Industry == Unknown || row.Industry == "") && old.Industry != "" && old.Industry != Unknown {
			rows[i].Industry = old.Industry
		}
		if (row.Ecosystem == Unknown || row.Ecosystem == "") && old.Ecosystem != "" && old.Ecosystem != Unknown {
			rows[i].Ecosystem = old.Ecosystem
		}
		if row.OrganName == "" && old.OrganName != "" {
			rows[i].OrganName = old.OrganName
		}
		if row.LastTradeDate == "" && old.LastTradeDate != "" {
			rows[i].LastTradeDate = old.LastTradeDate
		}
	}
	return rows
}
