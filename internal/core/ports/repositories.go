package ports

import (
	"context"

	"github.com/becomap/becomap-go/internal/core/domain"
)

// SiteRepository persists sites with their buildings and floors.
type SiteRepository interface {
	Upsert(ctx context.Context, site *domain.Site) error
	GetByID(ctx context.Context, id string) (*domain.Site, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Site, error)
	List(ctx context.Context) ([]domain.Site, error)
	// GetBundle loads the full aggregate a bridge session needs:
	// site, buildings, floors, categories, locations, connectors.
	GetBundle(ctx context.Context, siteID string) (*domain.Bundle, error)
}

// LocationRepository persists points of interest.
type LocationRepository interface {
	Upsert(ctx context.Context, loc *domain.Location) error
	UpsertBatch(ctx context.Context, locs []domain.Location) error
	GetByID(ctx context.Context, id string) (*domain.Location, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Location, error)
	ListByFloor(ctx context.Context, floorID string) ([]domain.Location, error)
	ListByCategory(ctx context.Context, siteID, categoryID string) ([]domain.Location, error)
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Location, error)
	Search(ctx context.Context, siteID, query string, near *domain.GeoPoint, limit int) ([]domain.Location, error)
}

// CategoryRepository persists the category taxonomy of a site.
type CategoryRepository interface {
	UpsertBatch(ctx context.Context, cats []domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	ListBySite(ctx context.Context, siteID string) ([]domain.Category, error)
	Search(ctx context.Context, siteID, query string, limit int) ([]domain.Category, error)
}

// ConnectorRepository persists floor-to-floor connectors.
type ConnectorRepository interface {
	UpsertBatch(ctx context.Context, conns []domain.Connector) error
	ListBySite(ctx context.Context, siteID string) ([]domain.Connector, error)
}
