package symbols

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/D9Dre4mer/VNStock-Data/pkg/provider"
)

// Unknown fills catalog columns the listing endpoints had no answer for.
const Unknown = "UNKNOWN"

// Info is one catalog row.
type Info struct {
	Symbol        string
	Exchange      string
	Industry      string
	Ecosystem     string
	OrganName     string
	LastTradeDate string
}

// Lister is the slice of the provider client the catalog builder needs.
type Lister interface {
	AllSymbols(ctx context.Context) ([]provider.ListedSymbol, error)
	SymbolsByExchange(ctx context.Context) (map[string]string, error)
	SymbolsByIndustries(ctx context.Context) (map[string]string, error)
}

// Builder assembles catalog rows from the listing endpoints and a family map.
type Builder struct {
	lister   Lister
	families FamilyMap
	logger   zerolog.Logger
}

// NewBuilder creates a catalog builder. families may be nil.
func NewBuilder(lister Lister, families FamilyMap, logger zerolog.Logger) *Builder {
	if families == nil {
		families = make(FamilyMap)
	}
	return &Builder{lister: lister, families: families, logger: logger}
}

// Build fetches the listing endpoints and joins them into one row per
// 3-letter symbol, sorted alphabetically. The exchange map decides which
// symbols exist; industry, ecosystem and organ name enrich them, with
// Unknown standing in for gaps.
func (b *Builder) Build(ctx context.Context) ([]Info, error) {
	byExchange, err := b.lister.SymbolsByExchange(ctx)
	if err != nil {
		return nil, fmt.Errorf("symbols: exchange listing: %w", err)
	}

	byIndustry, err := b.lister.SymbolsByIndustries(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("industry listing unavailable, continuing without it")
		byIndustry = make(map[string]string)
	}

	organNames := make(map[string]string)
	if listed, err := b.lister.AllSymbols(ctx); err != nil {
		b.logger.Warn().Err(err).Msg("organ names unavailable, continuing without them")
	} else {
		for _, s := range listed {
			organNames[s.Symbol] = s.OrganName
		}
	}

	tickers := make([]string, 0, len(byExchange))
	for symbol := range byExchange {
		if validSymbol(symbol) {
			tickers = append(tickers, symbol)
		}
	}
	sort.Strings(tickers)

	rows := make([]Info, 0, len(tickers))
	for _, symbol := range tickers {
		rows = append(rows, Info{
			Symbol:    symbol,
			Exchange:  orUnknown(byExchange[symbol]),
			Industry:  orUnknown(byIndustry[symbol]),
			Ecosystem: orUnknown(b.families[symbol]),
			OrganName: organNames[symbol],
		})
	}

	b.logger.Info().Int("symbols", len(rows)).Msg("catalog built")
	return rows, nil
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}
