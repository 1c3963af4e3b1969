package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

const historyEndpoint = "/v2/ohlc/history"

// History fetches the end-of-day series for one symbol over a date range
// (YYYY-MM-DD, inclusive). A zero-row result is returned as-is; whether that
// counts as a failure is the caller's policy.
func (c *Client) History(ctx context.Context, symbol, start, end string) ([]Candle, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("start", start)
	query.Set("end", end)
	query.Set("resolution", "1D")

	body, err := c.get(ctx, historyEndpoint, query, 0)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}

	rows := gjson.GetBytes(body, "data")
	if !rows.Exists() {
		// Some provider versions return the array at the top level.
		rows = gjson.ParseBytes(body)
	}
	if !rows.IsArray() {
		return nil, fmt.Errorf("history %s: unexpected response shape", symbol)
	}

	candles := make([]Candle, 0, len(rows.Array()))
	for _, row := range rows.Array() {
		candles = append(candles, Candle{
			Time:   candleTime(row.Get("time")),
			Open:   row.Get("open").Float(),
			High:   row.Get("high").Float(),
			Low:    row.Get("low").Float(),
			Close:  row.Get("close").Float(),
			Volume: row.Get("volume").Float(),
		})
	}

	return candles, nil
}

// candleTime normalizes the provider's time field, which is a YYYY-MM-DD
// string on current versions but a unix timestamp on older ones.
func candleTime(v gjson.Result) string {
	if v.Type == gjson.Number {
		return time.Unix(v.Int(), 0).UTC().Format("2006-01-02")
	}
	return v.String()
}
