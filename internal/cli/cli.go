// Package cli carries the setup shared by every binary: flag/env binding,
// logging, the optional metrics listener and the optional Redis cache.
package cli

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/D9Dre4mer/VNStock-Data/pkg/cache"
	"github.com/D9Dre4mer/VNStock-Data/pkg/logging"
)

// EnvPrefix for configuration overrides, e.g. VNSTOCK_LOG_LEVEL.
const EnvPrefix = "VNSTOCK"

// UserAgent identifies this tool to the quote provider.
const UserAgent = "vnstock-data/1.0 (github.com/D9Dre4mer/VNStock-Data)"

// CommonFlags registers the flags every binary shares and returns the viper
// instance with env binding in place.
func CommonFlags(flags *pflag.FlagSet) *viper.Viper {
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.String("metrics-addr", "", "listen address for Prometheus metrics (disabled when empty)")
	flags.String("redis-url", "", "Redis address for the listing response cache (disabled when empty)")

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Setup parses flags, binds them to env overrides and configures the global
// logger. Returns the bound viper and a logger for the component.
func Setup(component string, flags *pflag.FlagSet, v *viper.Viper, args []string) (*viper.Viper, zerolog.Logger, error) {
	if err := flags.Parse(args); err != nil {
		return nil, zerolog.Logger{}, err
	}
	if err := v.BindPFlags(flags); err != nil {
		return nil, zerolog.Logger{}, err
	}

	logging.Setup(logging.Config{
		Level:   v.GetString("log-level"),
		Console: true,
	})
	return v, logging.NewLogger(component), nil
}

// StartMetrics serves /metrics on addr when non-empty. The server lives for
// the whole process; errors are logged, not fatal, since metrics are an
// optional extra on a batch tool.
func StartMetrics(addr string, logger zerolog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		logger.Info().Str("addr", addr).Msg("metrics listener started")
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn().Err(err).Msg("metrics listener stopped")
		}
	}()
}

// OpenCache connects to Redis when an address is configured. A nil return is
// valid: the provider then skips caching entirely. Connection failures
// degrade to no cache rather than aborting the run.
func OpenCache(ctx context.Context, addr string, logger zerolog.Logger) *cache.Manager {
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", addr).Msg("Redis unavailable, running without cache")
		return nil
	}
	logger.Info().Str("addr", addr).Msg("listing cache connected")
	return cache.NewManager(client)
}

// Today returns the current date in the provider's date format.
func Today() string {
	return time.Now().Format("2006-01-02")
}
