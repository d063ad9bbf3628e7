package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Registry holds the server's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gdaserver",
			Subsystem: "startup",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each startup stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"stage"},
	)

	commandsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gdaserver",
			Subsystem: "startup",
			Name:      "commands_started_total",
			Help:      "Commands that started successfully.",
		},
		[]string{"tier"},
	)

	startupFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gdaserver",
			Subsystem: "startup",
			Name:      "failures_total",
			Help:      "Startup failures by kind.",
		},
		[]string{"kind"},
	)

	liveHandles = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "gdaserver",
			Subsystem: "registry",
			Name:      "live_handles",
			Help:      "Registered live handles.",
		},
		[]string{"tier"},
	)

	statusRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gdaserver",
			Subsystem: "status_port",
			Name:      "requests_total",
			Help:      "Status port requests by kind.",
		},
		[]string{"kind"},
	)

	statusConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gdaserver",
			Subsystem: "status_port",
			Name:      "active_connections",
			Help:      "Open status port connections.",
		},
	)

	teardowns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gdaserver",
			Subsystem: "shutdown",
			Name:      "teardowns_total",
			Help:      "Teardown outcomes per tier.",
		},
		[]string{"tier", "outcome"},
	)
)

const (
	TierInfrastructure = "infrastructure"
	TierObject         = "object"

	FailureLaunch = "launch"
	FailureAbsent = "absent"

	RequestStatus = "status"
	RequestEcho   = "echo"

	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeOrphaned = "orphaned"
)

func init() {
	Registry.MustRegister(
		stageDuration,
		commandsStarted,
		startupFailures,
		liveHandles,
		statusRequests,
		statusConnections,
		teardowns,
	)
}

// ObserveStage records how long a startup stage took.
func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// CommandStarted counts a command that started and adjusts the live handle gauge.
func CommandStarted(tier string) {
	commandsStarted.WithLabelValues(tier).Inc()
	liveHandles.WithLabelValues(tier).Inc()
}

// StartupFailed counts a startup failure of the given kind.
func StartupFailed(kind string) {
	startupFailures.WithLabelValues(kind).Inc()
}

// StatusRequest counts a status port request.
func StatusRequest(kind string) {
	statusRequests.WithLabelValues(kind).Inc()
}

// ConnectionOpened and ConnectionClosed track open status port connections.
func ConnectionOpened() { statusConnections.Inc() }
func ConnectionClosed() { statusConnections.Dec() }

// TornDown counts a teardown outcome and releases the live handle.
func TornDown(tier, outcome string) {
	teardowns.WithLabelValues(tier, outcome).Inc()
	liveHandles.WithLabelValues(tier).Dec()
}
