package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/FranksOps/dogbook/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Search request outcomes.
const (
	SearchOK    = "ok"
	SearchError = "error"
	SearchQuota = "quota_exceeded"
)

var (
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dogbook_search_requests_total",
			Help: "Total number of search API calls by outcome",
		},
		[]string{"outcome"},
	)

	SearchQuotaUsed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dogbook_search_quota_used",
			Help: "Search calls counted against the monthly quota in this process",
		},
	)

	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dogbook_generations_total",
			Help: "Total number of LLM topic generations by kind and result",
		},
		[]string{"kind", "result"},
	)

	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dogbook_queries_total",
			Help: "Total number of collection queries by region and outcome",
		},
		[]string{"region", "outcome"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dogbook_query_duration_seconds",
			Help:    "Duration of one search plus generation cycle in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"region"},
	)

	TopicsMaterializedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dogbook_topics_materialized_total",
			Help: "Staged rows processed by the materializer by result",
		},
		[]string{"result"},
	)
)

// RecordQuery updates the collection metrics from an audit record.
func RecordQuery(rec *storage.QueryRecord) {
	if rec == nil {
		return
	}
	QueriesTotal.WithLabelValues(rec.Region, string(rec.Outcome)).Inc()
	QueryDuration.WithLabelValues(rec.Region).Observe(rec.Duration.Seconds())
}

// RecordSearch counts one search call and publishes the current quota usage.
func RecordSearch(outcome string, used int) {
	SearchRequestsTotal.WithLabelValues(outcome).Inc()
	SearchQuotaUsed.Set(float64(used))
}

// RecordGeneration counts one generation attempt. kind is "single" or "latam".
func RecordGeneration(kind string, ok bool) {
	result := "ok"
	if !ok {
		result = "rejected"
	}
	GenerationsTotal.WithLabelValues(kind, result).Inc()
}

// RecordMaterialized adds a materializer run's counts.
func RecordMaterialized(generated, skipped, rejected int) {
	TopicsMaterializedTotal.WithLabelValues("generated").Add(float64(generated))
	TopicsMaterializedTotal.WithLabelValues("skipped").Add(float64(skipped))
	TopicsMaterializedTotal.WithLabelValues("rejected").Add(float64(rejected))
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "port", port, "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
