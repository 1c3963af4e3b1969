package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vnstock_fetch_results_total",
		Help: "Per-symbol download outcomes by final status.",
	}, []string{"status"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vnstock_fetch_retries_total",
		Help: "Retried attempts by reason (rate_limit or transient).",
	}, []string{"reason"})
)
