package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/becomap/becomap-go/internal/core/domain"
	"github.com/becomap/becomap-go/internal/core/ports"
	"github.com/becomap/becomap-go/pkg/becomap"
)

// VenueService serves site, floor, category and location reads, with
// read-through caching in front of the repositories.
type VenueService struct {
	sites      ports.SiteRepository
	locations  ports.LocationRepository
	categories ports.CategoryRepository
	cache      ports.CacheService
}

func NewVenueService(sites ports.SiteRepository, locations ports.LocationRepository, categories ports.CategoryRepository, cache ports.CacheService) *VenueService {
	return &VenueService{sites: sites, locations: locations, categories: categories, cache: cache}
}

// ListSites returns all published sites.
func (s *VenueService) ListSites(ctx context.Context) ([]domain.Site, error) {
	cacheKey := "sites:list"
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil && data != nil {
			var sites []domain.Site
			if err := json.Unmarshal(data, &sites); err == nil {
				return sites, nil
			}
		}
	}

	sites, err := s.sites.List(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(sites); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}
	return sites, nil
}

// GetSite returns one site by id, falling back to slug lookup so
// handlers accept either form.
func (s *VenueService) GetSite(ctx context.Context, idOrSlug string) (*domain.Site, error) {
	site, err := s.sites.GetByID(ctx, idOrSlug)
	if err == nil && site != nil {
		return site, nil
	}
	site, err = s.sites.GetBySlug(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, becomap.New(becomap.CodeNotFound, "site "+idOrSlug+" not found")
	}
	return site, nil
}

// GetBundle returns the full aggregate for a site. Bundles power
// bridge session init and are the hottest read, so they get the
// longest TTL.
func (s *VenueService) GetBundle(ctx context.Context, siteID string) (*domain.Bundle, error) {
	cacheKey := fmt.Sprintf("site:%s:bundle", siteID)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil && data != nil {
			var bundle domain.Bundle
			if err := json.Unmarshal(data, &bundle); err == nil {
				return &bundle, nil
			}
		}
	}

	bundle, err := s.sites.GetBundle(ctx, siteID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(bundle); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}
	return bundle, nil
}

// ListFloors returns the floors of a site across all its buildings.
func (s *VenueService) ListFloors(ctx context.Context, siteID string) ([]domain.Floor, error) {
	bundle, err := s.GetBundle(ctx, siteID)
	if err != nil {
		return nil, err
	}
	return bundle.Floors(), nil
}

// ListCategories returns the category taxonomy of a site.
func (s *VenueService) ListCategories(ctx context.Context, siteID string) ([]domain.Category, error) {
	cacheKey := fmt.Sprintf("site:%s:categories", siteID)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil && data != nil {
			var cats []domain.Category
			if err := json.Unmarshal(data, &cats); err == nil {
				return cats, nil
			}
		}
	}

	cats, err := s.categories.ListBySite(ctx, siteID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(cats); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}
	return cats, nil
}

// GetLocation returns one location by id.
func (s *VenueService) GetLocation(ctx context.Context, id string) (*domain.Location, error) {
	loc, err := s.locations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, becomap.New(becomap.CodeNotFound, "location "+id+" not found")
	}
	return loc, nil
}

// GetLocations returns locations for a batch of ids.
func (s *VenueService) GetLocations(ctx context.Context, ids []string) ([]domain.Location, error) {
	if len(ids) == 0 {
		return []domain.Location{}, nil
	}
	return s.locations.GetByIDs(ctx, ids)
}

// ListFloorLocations returns the locations placed on one floor.
func (s *VenueService) ListFloorLocations(ctx context.Context, floorID string) ([]domain.Location, error) {
	return s.locations.ListByFloor(ctx, floorID)
}

// ListCategoryLocations returns the locations of a site tagged with a
// category.
func (s *VenueService) ListCategoryLocations(ctx context.Context, siteID, categoryID string) ([]domain.Location, error) {
	return s.locations.ListByCategory(ctx, siteID, categoryID)
}

// FindNearbyLocations finds locations within a radius of a point.
func (s *VenueService) FindNearbyLocations(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Location, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if radiusMeters <= 0 || radiusMeters > 5000 {
		radiusMeters = 500
	}

	cacheKey := fmt.Sprintf("locations:nearby:%.4f:%.4f:%.0f:%d", lat, lon, radiusMeters, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil && data != nil {
			var locs []domain.Location
			if err := json.Unmarshal(data, &locs); err == nil {
				return locs, nil
			}
		}
	}

	locs, err := s.locations.FindNearby(ctx, lat, lon, radiusMeters, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(locs); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 60)
		}
	}
	return locs, nil
}

// InvalidateSite drops the cached reads for a site after a republish.
func (s *VenueService) InvalidateSite(ctx context.Context, siteID string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, "sites:list")
	_ = s.cache.Delete(ctx, fmt.Sprintf("site:%s:bundle", siteID))
	_ = s.cache.Delete(ctx, fmt.Sprintf("site:%s:categories", siteID))
}
