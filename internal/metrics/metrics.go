// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "teasales",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern, method and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	SalesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "teasales",
		Name:      "sales_created_total",
		Help:      "Sales saved from submitted drafts.",
	})

	SalesAmount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "teasales",
		Name:      "sales_amount_total",
		Help:      "Sum of saved sale totals.",
	})

	CatalogCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "teasales",
		Name:      "catalog_cache_lookups_total",
		Help:      "Catalog cache lookups by result (hit, miss, error).",
	}, []string{"result"})

	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "teasales",
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome.",
	}, []string{"outcome"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
