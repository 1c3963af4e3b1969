// Package cache provides an optional Redis-backed cache for provider listing
// responses. Listing endpoints are expensive and rate-limited, and their data
// changes at most daily, so responses are kept with a fixed TTL. The cache is
// fully optional: a nil Manager behaves as a permanent miss and every call
// goes to the network.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Key identifies a cached provider response.
type Key struct {
	// Endpoint is the provider endpoint path (e.g. "/v2/listing/all-symbols").
	Endpoint string

	// Params are the query parameters, if any.
	Params url.Values
}

// String generates a deterministic Redis key.
// Format: vnstock:endpoint:param1=val1:param2=val2
func (k Key) String() string {
	parts := []string{"vnstock"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params.Get(name)))
		}
	}

	return strings.Join(parts, ":")
}

// Entry is a cached response body with an absolute expiry.
type Entry struct {
	// Data is the raw response body.
	Data []byte `json:"data"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`

	// CachedAt is when the entry was stored.
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true when the entry is past its expiry.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the remaining lifetime, or 0 when already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Manager handles cache operations against a Redis backend.
type Manager struct {
	redis *redis.Client
}

// NewManager creates a cache manager. The Redis client must not be nil; for
// a cacheless setup pass a nil *Manager around instead.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{redis: redisClient}
}

// Get retrieves a cache entry. Returns ErrCacheMiss when the key does not
// exist, the entry has expired, or the manager itself is nil.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	if m == nil {
		return nil, ErrCacheMiss
	}

	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			cacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		cacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	cacheHits.Inc()
	return &entry, nil
}

// Set stores a response body under key with the given TTL. A nil manager or
// non-positive TTL is a no-op.
func (m *Manager) Set(ctx context.Context, key Key, body []byte, ttl time.Duration) error {
	if m == nil || ttl <= 0 {
		return nil
	}

	now := time.Now()
	entry := Entry{
		Data:     body,
		Expires:  now.Add(ttl),
		CachedAt: now,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a key. Used by tests and manual invalidation.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if m == nil {
		return nil
	}
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		cacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
