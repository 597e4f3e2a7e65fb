package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rosterd_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rosterd_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	signupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rosterd_signups_total",
		Help: "Count of signup attempts by role and result",
	}, []string{"role", "result"})

	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rosterd_logins_total",
		Help: "Count of login attempts by credential kind and result",
	}, []string{"kind", "result"})

	legacyLoginsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rosterd_legacy_logins_total",
		Help: "Count of successful logins that verified against a pre-bcrypt password hash",
	})

	rosterQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rosterd_roster_queries_total",
		Help: "Count of roster queries by visibility scope and result",
	}, []string{"scope", "result"})

	tenantAccounts = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rosterd_tenant_accounts",
		Help: "Number of accounts per academy",
	}, []string{"academy_id"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveSignup increments the signup counter for the given role and result.
func ObserveSignup(role, result string) {
	signupsTotal.WithLabelValues(role, result).Inc()
}

// ObserveLogin increments the login counter for the given credential kind and result.
func ObserveLogin(kind, result string) {
	loginsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveLegacyLogin counts a login that matched a legacy password hash.
func ObserveLegacyLogin() {
	legacyLoginsTotal.Inc()
}

// ObserveRosterQuery increments the roster query counter.
func ObserveRosterQuery(scope, result string) {
	rosterQueriesTotal.WithLabelValues(scope, result).Inc()
}

// SetTenantAccounts sets the per-academy account gauge.
func SetTenantAccounts(academyID string, count int) {
	if count < 0 {
		count = 0
	}
	tenantAccounts.WithLabelValues(academyID).Set(float64(count))
}
