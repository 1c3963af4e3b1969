package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	allSymbolsEndpoint   = "/v2/listing/all-symbols"
	byExchangeEndpoint   = "/v2/listing/symbols-by-exchange"
	byIndustriesEndpoint = "/v2/listing/symbols-by-industries"
)

// exchangeAliases normalizes provider exchange codes; only the three
// Vietnamese boards are retained.
var exchangeAliases = map[string]string{
	"HOSE":  "HOSE",
	"HSX":   "HOSE",
	"HNX":   "HNX",
	"UPCOM": "UPCOM",
}

// AllSymbols returns every listed symbol with its company name. Failure is
// fatal for a run: no partial list is ever returned.
func (c *Client) AllSymbols(ctx context.Context) ([]ListedSymbol, error) {
	body, err := c.get(ctx, allSymbolsEndpoint, nil, listingCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("all symbols: %w", err)
	}

	rows := listingRows(body)
	if !rows.IsArray() {
		return nil, fmt.Errorf("all symbols: unexpected response shape")
	}

	seen := make(map[string]bool)
	var symbols []ListedSymbol
	for _, row := range rows.Array() {
		symbol := listingSymbol(row)
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		symbols = append(symbols, ListedSymbol{
			Symbol:    symbol,
			OrganName: strings.TrimSpace(row.Get("organ_name").String()),
		})
	}

	sort.Slice(symbols, func(i, j int) bool { return symbols[i].Symbol < symbols[j].Symbol })

	c.logger.Info().Int("count", len(symbols)).Msg("Listed symbols fetched")
	return symbols, nil
}

// Symbols returns the deduplicated, sorted symbol names for a download run.
func (c *Client) Symbols(ctx context.Context) ([]string, error) {
	listed, err := c.AllSymbols(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(listed))
	for i, s := range listed {
		names[i] = s.Symbol
	}
	return names, nil
}

// SymbolsByExchange returns symbol -> exchange for the HOSE/HNX/UPCOM boards,
// with HSX normalized to HOSE.
func (c *Client) SymbolsByExchange(ctx context.Context) (map[string]string, error) {
	body, err := c.get(ctx, byExchangeEndpoint, nil, listingCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("symbols by exchange: %w", err)
	}

	rows := listingRows(body)
	if !rows.IsArray() {
		return nil, fmt.Errorf("symbols by exchange: unexpected response shape")
	}

	result := make(map[string]string)
	for _, row := range rows.Array() {
		symbol := listingSymbol(row)
		if symbol == "" {
			continue
		}

		raw := strings.ToUpper(strings.TrimSpace(firstString(row, "exchange", "comGroupCode", "board")))
		exchange, ok := exchangeAliases[raw]
		if !ok {
			continue
		}
		result[symbol] = exchange
	}

	c.logger.Info().Int("count", len(result)).Msg("Exchange mapping fetched")
	return result, nil
}

// SymbolsByIndustries returns symbol -> industry name, preferring the ICB
// level-3 classification.
func (c *Client) SymbolsByIndustries(ctx context.Context) (map[string]string, error) {
	body, err := c.get(ctx, byIndustriesEndpoint, nil, listingCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("symbols by industries: %w", err)
	}

	rows := listingRows(body)
	if !rows.IsArray() {
		return nil, fmt.Errorf("symbols by industries: unexpected response shape")
	}

	result := make(map[string]string)
	for _, row := range rows.Array() {
		symbol := listingSymbol(row)
		if symbol == "" {
			continue
		}

		industry := strings.TrimSpace(firstString(row, "icb_name3", "icb_name2", "icb_name4", "industry"))
		if industry == "" || strings.EqualFold(industry, "nan") || strings.EqualFold(industry, "none") {
			continue
		}
		result[symbol] = industry
	}

	c.logger.Info().Int("count", len(result)).Msg("Industry mapping fetched")
	return result, nil
}

// listingRows locates the row array in a listing response body.
func listingRows(body []byte) gjson.Result {
	rows := gjson.GetBytes(body, "data")
	if rows.Exists() {
		return rows
	}
	return gjson.ParseBytes(body)
}

// listingSymbol extracts and normalizes a row's symbol; provider versions
// disagree on the field name.
func listingSymbol(row gjson.Result) string {
	return strings.ToUpper(strings.TrimSpace(firstString(row, "symbol", "ticker", "code")))
}

// firstString returns the first non-empty string among the named fields.
func firstString(row gjson.Result, fields ...string) string {
	for _, field := range fields {
		if v := row.Get(field).String(); v != "" {
			return v
		}
	}
	return ""
}
