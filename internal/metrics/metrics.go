package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scim_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status", "tenant"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scim_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	filterEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scim_filter_evaluations_total",
			Help: "Total number of filter expressions translated/evaluated",
		},
		[]string{"path", "status"}, // path: sql, memory; status: success, error
	)

	patchOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scim_patch_operations_total",
			Help: "Total number of PATCH operations applied",
		},
		[]string{"op", "status"}, // op: add, replace, remove
	)

	tenantAuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scim_tenant_auth_failures_total",
			Help: "Total number of tenant authentication failures",
		},
		[]string{"tenant"},
	)

	dbQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scim_database_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scim_database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	dbConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scim_database_connections",
			Help: "Current database connection pool statistics",
		},
		[]string{"state"},
	)

	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scim_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type", "severity"},
	)

	retriedTransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scim_retried_transactions_total",
			Help: "Total number of transactions retried after deadlock/serialization failure",
		},
		[]string{"outcome"}, // recovered, exhausted
	)
)

// RecordHTTPRequest records an HTTP request metric
func RecordHTTPRequest(method, endpoint, tenant string, statusCode int, duration time.Duration) {
	status := "2xx"
	switch {
	case statusCode >= 300 && statusCode < 400:
		status = "3xx"
	case statusCode >= 400 && statusCode < 500:
		status = "4xx"
	case statusCode >= 500:
		status = "5xx"
	}

	httpRequestsTotal.WithLabelValues(method, endpoint, status, tenant).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordFilterEvaluation records a filter parse/translate/evaluate outcome.
func RecordFilterEvaluation(path string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	filterEvaluationsTotal.WithLabelValues(path, status).Inc()
}

// RecordPatchOperation records a single PATCH operation outcome.
func RecordPatchOperation(op string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	patchOperationsTotal.WithLabelValues(op, status).Inc()
}

// RecordTenantAuthFailure records a failed tenant authentication attempt.
func RecordTenantAuthFailure(tenant string) {
	tenantAuthFailuresTotal.WithLabelValues(tenant).Inc()
}

// RecordDBQuery records a database query
func RecordDBQuery(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	dbQueriesTotal.WithLabelValues(operation, status).Inc()
	dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnections updates database connection pool metrics
func UpdateDBConnections(stats sql.DBStats) {
	dbConnections.WithLabelValues("open").Set(float64(stats.OpenConnections))
	dbConnections.WithLabelValues("in_use").Set(float64(stats.InUse))
	dbConnections.WithLabelValues("idle").Set(float64(stats.Idle))
	dbConnections.WithLabelValues("max_open").Set(float64(stats.MaxOpenConnections))
}

// RecordError records an error
func RecordError(errorType, severity string) {
	errorsTotal.WithLabelValues(errorType, severity).Inc()
}

// RecordRetriedTransaction records a transaction retry outcome.
func RecordRetriedTransaction(recovered bool) {
	outcome := "exhausted"
	if recovered {
		outcome = "recovered"
	}
	retriedTransactionsTotal.WithLabelValues(outcome).Inc()
}
