// Package testutil provides testing utilities for the VNStock-Data packages.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockCandle is one history row served by the mock provider.
type MockCandle struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// MockProvider is a configurable mock quote API server for testing.
type MockProvider struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	counts   map[string]int
	total    int
}

// NewMockProvider creates a mock provider server. Paths without a configured
// handler respond 404.
func NewMockProvider() *MockProvider {
	mock := &MockProvider{
		handlers: make(map[string]http.HandlerFunc),
		counts:   make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.total++
		mock.counts[r.URL.Path]++
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if !exists {
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))

	return mock
}

// URL returns the mock server base URL.
func (m *MockProvider) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockProvider) Close() {
	m.server.Close()
}

// RequestCount returns the total number of requests received.
func (m *MockProvider) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total
}

// PathCount returns the number of requests received for a path.
func (m *MockProvider) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[path]
}

// Reset clears all request counters.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = 0
	m.counts = make(map[string]int)
}

// SetHandler installs a custom handler for a path.
func (m *MockProvider) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetJSON configures a path to respond 200 with the given value marshalled
// under a top-level "data" field, matching the provider's response envelope.
func (m *MockProvider) SetJSON(path string, data any) {
	body, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal mock response: %v", err))
	}
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	})
}

// SetHistory configures the history endpoint to serve the given candles.
// All symbols share the one endpoint; use a custom handler to vary by symbol.
func (m *MockProvider) SetHistory(candles []MockCandle) {
	if candles == nil {
		candles = []MockCandle{}
	}
	m.SetJSON("/v2/ohlc/history", candles)
}

// SetHistoryBySymbol configures the history endpoint to serve per-symbol
// candle sets; unknown symbols get an empty data array.
func (m *MockProvider) SetHistoryBySymbol(bySymbol map[string][]MockCandle) {
	m.SetHandler("/v2/ohlc/history", func(w http.ResponseWriter, r *http.Request) {
		candles := bySymbol[r.URL.Query().Get("symbol")]
		if candles == nil {
			candles = []MockCandle{}
		}
		body, _ := json.Marshal(map[string]any{"data": candles})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	})
}

// SetRateLimited configures a path to respond 429 with the provider's
// Vietnamese wait-hint message shape.
func (m *MockProvider) SetRateLimited(path string, waitSeconds int) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprintf(w, `{"message":"Quá nhiều request, vui lòng thử lại sau %d giây"}`, waitSeconds)
	})
}

// Candles builds n sequential daily mock candles starting at 2024-01-01.
func Candles(n int) []MockCandle {
	candles := make([]MockCandle, n)
	for i := range candles {
		candles[i] = MockCandle{
			Time:   fmt.Sprintf("2024-01-%02d", i+1),
			Open:   10 + float64(i),
			High:   11 + float64(i),
			Low:    9 + float64(i),
			Close:  10.5 + float64(i),
			Volume: 1000 * float64(i+1),
		}
	}
	return candles
}
