// Package metrics holds the Prometheus instruments. Registration happens at
// import time via promauto; /metrics is served by promhttp in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkpayout_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bulkpayout_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method", "path"})

	BatchesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkpayout_batches_processed_total",
		Help: "Batch processing runs by payment method and terminal status",
	}, []string{"method", "status"})

	PaymentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkpayout_payments_processed_total",
		Help: "Per-payment submission outcomes by payment method and canonical status",
	}, []string{"method", "status"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkpayout_webhook_events_total",
		Help: "Inbound provider webhook events by provider and result",
	}, []string{"provider", "result"})
)
