package integration

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/D9Dre4mer/VNStock-Data/internal/testutil"
	"github.com/D9Dre4mer/VNStock-Data/pkg/cache"
	"github.com/D9Dre4mer/VNStock-Data/pkg/provider"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func TestCacheSetGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	manager := cache.NewManager(redisClient)

	key := cache.Key{Endpoint: "/v2/listing/all-symbols"}
	payload := []byte(`{"data":[{"symbol":"VCB"}]}`)

	if err := manager.Set(ctx, key, payload, 1*time.Minute); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	entry, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(entry.Data) != string(payload) {
		t.Errorf("Get() data = %s, want %s", entry.Data, payload)
	}
	if entry.IsExpired() {
		t.Error("fresh entry should not be expired")
	}
}

func TestCacheMiss(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	manager := cache.NewManager(redisClient)
	_, err := manager.Get(context.Background(), cache.Key{Endpoint: "/nope"})
	if err != cache.ErrCacheMiss {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

// TestListingServedFromCache verifies the full flow: the first listing call
// hits the provider and populates Redis, the second is answered from cache
// without a network request.
func TestListingServedFromCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockProvider()
	defer mock.Close()
	mock.SetJSON("/v2/listing/all-symbols", []map[string]string{
		{"symbol": "VCB", "organ_name": "Vietcombank"},
		{"symbol": "FPT", "organ_name": "FPT Corp"},
	})

	client, err := provider.New(provider.Config{
		BaseURL:   mock.URL(),
		UserAgent: "vnstock-data-integration/0.1",
		Cache:     cache.NewManager(redisClient),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx := context.Background()

	first, err := client.AllSymbols(ctx)
	if err != nil {
		t.Fatalf("first AllSymbols() error: %v", err)
	}
	if mock.PathCount("/v2/listing/all-symbols") != 1 {
		t.Fatalf("first call should hit the provider, got %d requests", mock.PathCount("/v2/listing/all-symbols"))
	}

	second, err := client.AllSymbols(ctx)
	if err != nil {
		t.Fatalf("second AllSymbols() error: %v", err)
	}
	if mock.PathCount("/v2/listing/all-symbols") != 1 {
		t.Errorf("second call should be served from cache, got %d requests", mock.PathCount("/v2/listing/all-symbols"))
	}

	if len(first) != len(second) {
		t.Errorf("cached result differs: %d vs %d symbols", len(first), len(second))
	}
}
