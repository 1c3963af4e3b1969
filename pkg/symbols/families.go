// Package symbols builds the symbol catalog: every listed 3-letter ticker
// joined with its exchange, industry, ecosystem ("family") membership, and an
// optional liveness probe against recent trading history.
package symbols

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const familyPrefix = "Họ "

// FamilyMap maps symbol to ecosystem name, e.g. "VIC" -> "VINGROUP".
type FamilyMap map[string]string

// LoadFamilies reads a family CSV where the first column is the family label
// ("Họ Vingroup") and the second a comma-separated symbol list. The "Họ "
// prefix is stripped and the remainder upper-cased. A missing file is not an
// error; it just yields an empty map.
func LoadFamilies(path string) (FamilyMap, error) {
	families := make(FamilyMap)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return families, nil
		}
		return nil, fmt.Errorf("symbols: open families file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	for line := 0; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("symbols: parse families file: %w", err)
		}
		if line == 0 || len(record) < 2 {
			// Header row or malformed line.
			continue
		}

		family := familyName(record[0])
		if family == "" {
			continue
		}
		for _, raw := range strings.Split(record[1], ",") {
			symbol := strings.ToUpper(strings.TrimSpace(raw))
			if !validSymbol(symbol) {
				continue
			}
			families[symbol] = family
		}
	}
	return families, nil
}

// familyName strips the "Họ " prefix and upper-cases what remains.
func familyName(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.TrimPrefix(name, familyPrefix)
	return strings.ToUpper(strings.TrimSpace(name))
}

// validSymbol reports whether s is a standard 3-letter equity ticker. ETFs,
// warrants and bonds use longer codes and are excluded from the catalog.
func validSymbol(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
