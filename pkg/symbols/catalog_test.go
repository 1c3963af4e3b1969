package symbols

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/D9Dre4mer/VNStock-Data/pkg/provider"
)

type fakeLister struct {
	byExchange    map[string]string
	byIndustry    map[string]string
	listed        []provider.ListedSymbol
	exchangeErr   error
	industryErr   error
	allSymbolsErr error
}

func (f *fakeLister) AllSymbols(context.Context) ([]provider.ListedSymbol, error) {
	return f.listed, f.allSymbolsErr
}

func (f *fakeLister) SymbolsByExchange(context.Context) (map[string]string, error) {
	return f.byExchange, f.exchangeErr
}

func (f *fakeLister) SymbolsByIndustries(context.Context) (map[string]string, error) {
	return f.byIndustry, f.industryErr
}

func discardLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestBuild_JoinsAllSources(t *testing.T) {
	lister := &fakeLister{
		byExchange: map[string]string{"VCB": "HOSE", "SHS": "HNX"},
		byIndustry: map[string]string{"VCB": "Ngân hàng"},
		listed: []provider.ListedSymbol{
			{Symbol: "VCB", OrganName: "Vietcombank"},
		},
	}
	families := FamilyMap{"SHS": "SAIGON HANOI"}

	rows, err := NewBuilder(lister, families, discardLogger()).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	// Sorted alphabetically.
	shs, vcb := rows[0], rows[1]
	if shs.Symbol != "SHS" || vcb.Symbol != "VCB" {
		t.Fatalf("unexpected order: %s, %s", rows[0].Symbol, rows[1].Symbol)
	}

	if vcb.Exchange != "HOSE" || vcb.Industry != "Ngân hàng" || vcb.OrganName != "Vietcombank" {
		t.Errorf("VCB row = %+v", vcb)
	}
	if vcb.Ecosystem != Unknown {
		t.Errorf("VCB ecosystem = %q, want UNKNOWN", vcb.Ecosystem)
	}
	if shs.Industry != Unknown || shs.Ecosystem != "SAIGON HANOI" {
		t.Errorf("SHS row = %+v", shs)
	}
	if shs.OrganName != "" {
		t.Errorf("missing organ name should stay empty, got %q", shs.OrganName)
	}
}

func TestBuild_FiltersNonEquityCodes(t *testing.T) {
	lister := &fakeLister{
		byExchange: map[string]string{"VCB": "HOSE", "FUEVFVND": "HOSE", "CFPT2404": "HOSE"},
	}

	rows, err := NewBuilder(lister, nil, discardLogger()).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(rows) != 1 || rows[0].Symbol != "VCB" {
		t.Errorf("rows = %+v, want only VCB", rows)
	}
}

func TestBuild_ExchangeListingFailureIsFatal(t *testing.T) {
	lister := &fakeLister{exchangeErr: errors.New("connect: refused")}

	if _, err := NewBuilder(lister, nil, discardLogger()).Build(context.Background()); err == nil {
		t.Error("Build() should fail when the exchange listing is unavailable")
	}
}

func TestBuild_EnrichmentFailuresAreTolerated(t *testing.T) {
	lister := &fakeLister{
		byExchange:    map[string]string{"VCB": "HOSE"},
		industryErr:   errors.New("boom"),
		allSymbolsErr: errors.New("boom"),
	}

	rows, err := NewBuilder(lister, nil, discardLogger()).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(rows) != 1 || rows[0].Industry != Unknown {
		t.Errorf("rows = %+v", rows)
	}
}
