package usecases

import (
	"context"
	"strings"

	"github.com/becomap/becomap-go/internal/core/domain"
	"github.com/becomap/becomap-go/internal/core/ports"
	"github.com/becomap/becomap-go/pkg/becomap"
)

// SearchService answers location and category searches for one site.
// Queries are validated with the same rules the client SDK applies, so
// both ends of the bridge reject the same inputs.
type SearchService struct {
	locations  ports.LocationRepository
	categories ports.CategoryRepository
}

func NewSearchService(locations ports.LocationRepository, categories ports.CategoryRepository) *SearchService {
	return &SearchService{locations: locations, categories: categories}
}

// SearchLocations finds locations of a site matching a free-text
// query, optionally ranked by distance from a point.
func (s *SearchService) SearchLocations(ctx context.Context, siteID, query string, near *domain.GeoPoint, limit int) ([]domain.Location, error) {
	query = strings.TrimSpace(query)
	if err := becomap.ValidateQuery(query); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.locations.Search(ctx, siteID, query, near, limit)
}

// SearchCategories finds categories of a site matching a query.
func (s *SearchService) SearchCategories(ctx context.Context, siteID, query string, limit int) ([]domain.Category, error) {
	query = strings.TrimSpace(query)
	if err := becomap.ValidateQuery(query); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.categories.Search(ctx, siteID, query, limit)
}
