package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "becomap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "becomap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "becomap",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Bridge metrics
	BridgeSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "becomap",
		Subsystem: "bridge",
		Name:      "sessions_active",
		Help:      "Current number of live bridge sessions",
	})

	BridgeMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "becomap",
		Subsystem: "bridge",
		Name:      "messages_total",
		Help:      "Total bridge messages by envelope type and direction",
	}, []string{"type", "direction"})

	BridgeCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "becomap",
		Subsystem: "bridge",
		Name:      "calls_total",
		Help:      "Total bridge operations handled, by outcome",
	}, []string{"operation", "status"})

	BridgeCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "becomap",
		Subsystem: "bridge",
		Name:      "call_duration_seconds",
		Help:      "Time from receiving an operation to sending its callback",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"operation"})

	// Venue metrics
	RoutesComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "becomap",
		Subsystem: "venue",
		Name:      "routes_computed_total",
		Help:      "Total routes synthesized by the planner",
	}, []string{"site"})

	SearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "becomap",
		Subsystem: "venue",
		Name:      "searches_total",
		Help:      "Total search requests by kind",
	}, []string{"site", "kind"})

	BundlePublishes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "becomap",
		Subsystem: "venue",
		Name:      "bundle_publishes_total",
		Help:      "Total venue bundle publishes",
	}, []string{"site", "outcome"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "becomap",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active event relay connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "becomap",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "becomap",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "becomap",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "becomap",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "becomap",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
// The assertion keeps pgxpool out of this package's imports.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
