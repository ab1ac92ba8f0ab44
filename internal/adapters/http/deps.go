package http

import (
	"github.com/nats-io/nats.go"

	"github.com/becomap/becomap-go/internal/adapters/postgres"
	"github.com/becomap/becomap-go/internal/adapters/valkey"
	"github.com/becomap/becomap-go/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers and the
// bridge. DB, NATS, and Cache may be nil; handlers that need them
// degrade or report unavailable.
type Dependencies struct {
	Venues   *usecases.VenueService
	Search   *usecases.SearchService
	Routes   *usecases.RoutePlanner
	Sessions *usecases.SessionService
	Bridge   BridgeConfig
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
}
