package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the Prometheus collectors for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	aiAttemptsTotal   *prometheus.CounterVec
	aiAttemptDuration *prometheus.HistogramVec
	aiTokensTotal     *prometheus.CounterVec

	cacheLookups *prometheus.CounterVec

	jobRunsTotal *prometheus.CounterVec

	notificationsTotal *prometheus.CounterVec
}

// NewMetrics registers all collectors on a fresh registry under the given namespace.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		aiAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ai_provider_attempts_total",
				Help:      "AI provider attempts by outcome (success, fallback, abort)",
			},
			[]string{"provider", "outcome"},
		),
		aiAttemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ai_provider_attempt_duration_seconds",
				Help:      "AI provider call latency in seconds",
				Buckets:   []float64{.25, .5, 1, 2, 5, 10, 20, 45},
			},
			[]string{"provider"},
		),
		aiTokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ai_tokens_total",
				Help:      "Tokens consumed by feature and provider",
			},
			[]string{"provider", "feature"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "integration_config_cache_lookups_total",
				Help:      "Integration config lookups by tier and result",
			},
			[]string{"tier", "result"},
		),
		jobRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Background job runs by job and result",
			},
			[]string{"job", "result"},
		),
		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notification_deliveries_total",
				Help:      "Notification deliveries by channel and status",
			},
			[]string{"channel", "status"},
		),
	}

	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.aiAttemptsTotal,
		m.aiAttemptDuration,
		m.aiTokensTotal,
		m.cacheLookups,
		m.jobRunsTotal,
		m.notificationsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordHTTPRequest records a served request
func (m *Metrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordAIAttempt records one provider attempt
func (m *Metrics) RecordAIAttempt(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.aiAttemptsTotal.WithLabelValues(provider, outcome).Inc()
	m.aiAttemptDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordAITokens adds token usage for a successful completion
func (m *Metrics) RecordAITokens(provider, feature string, tokens int) {
	if m == nil || tokens <= 0 {
		return
	}
	m.aiTokensTotal.WithLabelValues(provider, feature).Add(float64(tokens))
}

// RecordCacheLookup records a config cache lookup on a tier ("memory", "redis", "db")
func (m *Metrics) RecordCacheLookup(tier string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(tier, result).Inc()
}

// RecordJobRun records a background job execution
func (m *Metrics) RecordJobRun(job string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.jobRunsTotal.WithLabelValues(job, result).Inc()
}

// RecordNotification records a notification delivery attempt
func (m *Metrics) RecordNotification(channel, status string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(channel, status).Inc()
}
