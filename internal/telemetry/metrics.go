package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "friendgate",
			Name:      "subscription_decisions_total",
			Help:      "Subscription decisions by outcome (approve, deny, defer).",
		},
		[]string{"outcome"},
	)

	FriendQueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "friendgate",
			Name:      "friend_query_duration_seconds",
			Help:      "Latency of isFriend round trips to the provisioning server.",
			// Covers 1ms .. ~4s, the realistic IQ round-trip range.
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 13),
		},
	)

	InFlightDecisions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "friendgate",
			Name:      "in_flight_decisions",
			Help:      "Subscription decisions currently being made.",
		},
	)

	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "friendgate",
			Name:      "server_commands_total",
			Help:      "Authenticated provisioning-server commands by kind.",
		},
		[]string{"command"},
	)

	RejectedStanzasTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "friendgate",
			Name:      "rejected_stanzas_total",
			Help:      "Inbound control stanzas dropped by the origin gate.",
		},
		[]string{"reason"},
	)

	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "friendgate",
			Name:      "friend_cache_total",
			Help:      "Friend-verdict cache lookups by result.",
		},
		[]string{"result"},
	)

	// ---- Process / build info ----
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "friendgate",
			Name:      "build_info",
			Help:      "Build info (constant 1, labeled by version and git_sha).",
		},
		[]string{"version", "git_sha"},
	)

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "friendgate",
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

func init() {
	Registry.MustRegister(DecisionsTotal, FriendQueryDuration, InFlightDecisions,
		CommandsTotal, RejectedStanzasTotal, CacheHitsTotal, buildInfo, uptime)
}

// MetricsHandler exposes /metrics. Mount it with mux.Handle("/metrics", telemetry.MetricsHandler()).
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SetBuildInfo should be called once at startup, e.g. with ldflags-provided values.
func SetBuildInfo(version, gitSHA string) {
	buildInfo.WithLabelValues(version, gitSHA).Set(1)
}
