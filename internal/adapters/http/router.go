package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/becomap/becomap-go/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, bridge, and WebSocket routes.
// It returns the bridge hub so the caller can feed site refreshes into
// live sessions.
func SetupRoutes(app *fiber.App, deps *Dependencies) *BridgeHub {
	hub := NewBridgeHub(deps)

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// Sunset headers for routes kept alive for older clients
	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{
			Path:        "/v1/search",
			SunsetDate:  time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC),
			Alternative: "/v1/sites/{id}/locations/search",
		},
	}))

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 — 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Get("/sites", timeout.NewWithContext(ListSitesHandler(deps), 15*time.Second))
	v1.Get("/sites/:id", timeout.NewWithContext(GetSiteHandler(deps), 15*time.Second))
	v1.Get("/sites/:id/bundle", timeout.NewWithContext(SiteBundleHandler(deps), 15*time.Second))
	v1.Get("/sites/:id/floors", timeout.NewWithContext(SiteFloorsHandler(deps), 15*time.Second))
	v1.Get("/sites/:id/floors/summary", timeout.NewWithContext(SiteFloorSummaryHandler(deps), 15*time.Second))
	v1.Get("/sites/:id/categories", timeout.NewWithContext(SiteCategoriesHandler(deps), 15*time.Second))
	v1.Get("/sites/:id/categories/search", timeout.NewWithContext(SearchCategoriesHandler(deps), 15*time.Second))
	v1.Get("/sites/:id/categories/:categoryId/locations", timeout.NewWithContext(CategoryLocationsHandler(deps), 15*time.Second))
	v1.Get("/sites/:id/locations/search", timeout.NewWithContext(SearchLocationsHandler(deps), 15*time.Second))
	v1.Get("/floors/:id/locations", timeout.NewWithContext(FloorLocationsHandler(deps), 15*time.Second))
	v1.Get("/locations/nearby", timeout.NewWithContext(NearbyLocationsHandler(deps), 15*time.Second))
	v1.Get("/locations/batch", timeout.NewWithContext(BatchLocationsHandler(deps), 15*time.Second))
	v1.Get("/locations/:id", timeout.NewWithContext(GetLocationHandler(deps), 15*time.Second))
	v1.Post("/routes", timeout.NewWithContext(ComputeRouteHandler(deps), 15*time.Second))
	v1.Get("/routes/:id", timeout.NewWithContext(GetRouteHandler(deps), 15*time.Second))
	v1.Get("/venues/status", timeout.NewWithContext(VenueStatsHandler(deps), 15*time.Second))

	// Deprecated combined search kept for older clients
	v1.Get("/search", timeout.NewWithContext(LegacySearchHandler(deps), 15*time.Second))

	// Enriched endpoints
	v1.Get("/sites/:id/stats", timeout.NewWithContext(SiteStatsHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// Bridge WebSocket for map sessions
	app.Use("/bridge", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/bridge", websocket.New(BridgeHandler(hub)))

	// Event relay WebSocket, only when the broker is up
	if deps.NATS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(EventsHandler(deps.NATS)))
	}

	return hub
}
