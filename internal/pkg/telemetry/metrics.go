package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Bridge health
	MetricCallbackLatency = "bridge.callback_latency"
	MetricSessionChurn    = "bridge.session_churn"

	// Data freshness
	MetricBundleAge = "venue.bundle_age_seconds"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricRoutesPlanned   = "business.routes_planned"
	MetricVenuesPublished = "business.venues_published"
)
