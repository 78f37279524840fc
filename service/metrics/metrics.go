package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Guard Metrics
	coinChecksTotal       *prometheus.CounterVec
	redemptionChecksTotal *prometheus.CounterVec
	redemptionShortfall   *prometheus.HistogramVec

	// Registry Metrics
	registryRecords      *prometheus.GaugeVec
	registryTransactions *prometheus.GaugeVec
	registryLoadsTotal   *prometheus.CounterVec
	registryLoadDuration *prometheus.HistogramVec
	datasetFetchDuration *prometheus.HistogramVec

	// Database Metrics
	dbQueryDuration   *prometheus.HistogramVec
	dbOperationsTotal *prometheus.CounterVec

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Guard Metrics
		coinChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinguard_coin_checks_total",
				Help: "Total number of coin validity checks by result",
			},
			[]string{"network", "result"},
		),
		redemptionChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinguard_redemption_checks_total",
				Help: "Total number of redemption verifications by result and reason",
			},
			[]string{"network", "result", "reason"},
		),
		redemptionShortfall: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinguard_redemption_shortfall_coins",
				Help:    "Missing redemption amount in coin units for partially redeemed transactions",
				Buckets: []float64{0.01, 0.1, 1, 10, 100, 1000, 10000, 100000},
			},
			[]string{"network"},
		),

		// Registry Metrics
		registryRecords: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coinguard_registry_records",
				Help: "Number of infraction records currently loaded",
			},
			[]string{"network"},
		),
		registryTransactions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coinguard_registry_transactions",
				Help: "Number of distinct flagged transactions currently loaded",
			},
			[]string{"network"},
		),
		registryLoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinguard_registry_loads_total",
				Help: "Total number of registry load attempts by status",
			},
			[]string{"network", "status"},
		),
		registryLoadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinguard_registry_load_duration_seconds",
				Help:    "Duration of parsing and installing a dataset in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"network"},
		),
		datasetFetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinguard_dataset_fetch_duration_seconds",
				Help:    "Duration of reading the raw dataset from its source in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"source", "status"},
		),

		// Database Metrics
		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation", "table"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Guard metric helpers

// RecordCoinCheck records one IsCoinValid decision.
func (m *Metrics) RecordCoinCheck(network, result string) {
	m.coinChecksTotal.WithLabelValues(network, result).Inc()
}

// RecordRedemptionCheck records one redemption verification.
func (m *Metrics) RecordRedemptionCheck(network string, verified bool, reason string) {
	result := "rejected"
	if verified {
		result = "verified"
	}
	m.redemptionChecksTotal.WithLabelValues(network, result, reason).Inc()
}

// RecordRedemptionShortfall records how far a partial redemption fell short.
func (m *Metrics) RecordRedemptionShortfall(network string, coins float64) {
	m.redemptionShortfall.WithLabelValues(network).Observe(coins)
}

// Registry metric helpers

// RecordRegistrySize sets the loaded record and transaction gauges.
func (m *Metrics) RecordRegistrySize(network string, records, transactions int) {
	m.registryRecords.WithLabelValues(network).Set(float64(records))
	m.registryTransactions.WithLabelValues(network).Set(float64(transactions))
}

// RecordRegistryLoad records a load attempt with duration.
func (m *Metrics) RecordRegistryLoad(network, status string, duration float64) {
	m.registryLoadsTotal.WithLabelValues(network, status).Inc()
	m.registryLoadDuration.WithLabelValues(network).Observe(duration)
}

// RecordDatasetFetch records reading a dataset from a source.
func (m *Metrics) RecordDatasetFetch(source string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.datasetFetchDuration.WithLabelValues(source, status).Observe(duration)
}

// Database metric helpers

// RecordDBQuery records a database query with duration.
func (m *Metrics) RecordDBQuery(operation, table string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
