package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/becomap/becomap-go/internal/core/domain"
	"github.com/becomap/becomap-go/internal/pkg/geospatial"
)

// Store holds venue bundles in process memory. It implements the same
// repository ports the postgres adapter does, and backs mapsim when no
// database is configured.
type Store struct {
	mu        sync.RWMutex
	bundles   map[string]*domain.Bundle
	bySlug    map[string]string
	floorSite map[string]string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		bundles:   make(map[string]*domain.Bundle),
		bySlug:    make(map[string]string),
		floorSite: make(map[string]string),
	}
}

// Load validates a bundle and makes it servable.
func (s *Store) Load(bundle *domain.Bundle) error {
	if err := bundle.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundles[bundle.Site.ID] = bundle
	if bundle.Site.Slug != "" {
		s.bySlug[bundle.Site.Slug] = bundle.Site.ID
	}
	for _, b := range bundle.Site.Buildings {
		for _, f := range b.Floors {
			s.floorSite[f.ID] = bundle.Site.ID
		}
	}
	return nil
}

// --- ports.SiteRepository ---

func (s *Store) Upsert(ctx context.Context, site *domain.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bundle, ok := s.bundles[site.ID]
	if !ok {
		bundle = &domain.Bundle{}
		s.bundles[site.ID] = bundle
	}
	if bundle.Site.Version > site.Version {
		return fmt.Errorf("site %s: version %d is stale", site.ID, site.Version)
	}
	bundle.Site = *site
	if site.Slug != "" {
		s.bySlug[site.Slug] = site.ID
	}
	for _, b := range site.Buildings {
		for _, f := range b.Floors {
			s.floorSite[f.ID] = site.ID
		}
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if bundle, ok := s.bundles[id]; ok {
		site := bundle.Site
		return &site, nil
	}
	return nil, fmt.Errorf("site %s not found", id)
}

func (s *Store) GetBySlug(ctx context.Context, slug string) (*domain.Site, error) {
	s.mu.RLock()
	id, ok := s.bySlug[slug]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("site %s not found", slug)
	}
	return s.GetByID(ctx, id)
}

func (s *Store) List(ctx context.Context) ([]domain.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sites := make([]domain.Site, 0, len(s.bundles))
	for _, bundle := range s.bundles {
		site := bundle.Site
		site.Buildings = nil
		site.Categories = nil
		sites = append(sites, site)
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].Name < sites[j].Name })
	return sites, nil
}

func (s *Store) GetBundle(ctx context.Context, siteID string) (*domain.Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if bundle, ok := s.bundles[siteID]; ok {
		return bundle, nil
	}
	return nil, fmt.Errorf("site %s not found", siteID)
}

// --- ports.LocationRepository ---

func (s *Store) UpsertLocation(ctx context.Context, loc *domain.Location) error {
	return s.UpsertLocationBatch(ctx, []domain.Location{*loc})
}

func (s *Store) UpsertLocationBatch(ctx context.Context, locs []domain.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, loc := range locs {
		siteID, ok := s.floorSite[loc.FloorID]
		if !ok {
			return fmt.Errorf("location %s references unknown floor %s", loc.ID, loc.FloorID)
		}
		bundle := s.bundles[siteID]
		replaced := false
		for i := range bundle.Locations {
			if bundle.Locations[i].ID == loc.ID {
				bundle.Locations[i] = loc
				replaced = true
				break
			}
		}
		if !replaced {
			bundle.Locations = append(bundle.Locations, loc)
		}
	}
	return nil
}

func (s *Store) GetLocation(ctx context.Context, id string) (*domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, bundle := range s.bundles {
		if loc := bundle.Location(id); loc != nil {
			out := *loc
			return &out, nil
		}
	}
	return nil, fmt.Errorf("location %s not found", id)
}

func (s *Store) GetLocations(ctx context.Context, ids []string) ([]domain.Location, error) {
	var out []domain.Location
	for _, id := range ids {
		loc, err := s.GetLocation(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, *loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListByFloor(ctx context.Context, floorID string) ([]domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	siteID, ok := s.floorSite[floorID]
	if !ok {
		return nil, nil
	}
	var out []domain.Location
	for _, loc := range s.bundles[siteID].Locations {
		if loc.FloorID == floorID {
			out = append(out, loc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListByCategory(ctx context.Context, siteID, categoryID string) ([]domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bundle, ok := s.bundles[siteID]
	if !ok {
		return nil, nil
	}
	var out []domain.Location
	for _, loc := range bundle.Locations {
		if loc.CategoryID == categoryID {
			out = append(out, loc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Location
	for _, bundle := range s.bundles {
		for _, loc := range bundle.Locations {
			d := geospatial.Haversine(lat, lon, loc.Center.Lat, loc.Center.Lon)
			if d <= radiusMeters {
				loc.Distance = &d
				out = append(out, loc)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].Distance < *out[j].Distance })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Search(ctx context.Context, siteID, query string, near *domain.GeoPoint, limit int) ([]domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bundle, ok := s.bundles[siteID]
	if !ok {
		return nil, nil
	}

	type hit struct {
		loc   domain.Location
		score int
	}
	q := strings.ToLower(query)
	var hits []hit
	for _, loc := range bundle.Locations {
		score := matchScore(&loc, q)
		if score == 0 {
			continue
		}
		if near != nil {
			d := geospatial.Haversine(near.Lat, near.Lon, loc.Center.Lat, loc.Center.Lon)
			loc.Distance = &d
		}
		hits = append(hits, hit{loc: loc, score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		if near != nil {
			return *hits[i].loc.Distance < *hits[j].loc.Distance
		}
		return hits[i].loc.Name < hits[j].loc.Name
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]domain.Location, len(hits))
	for i, h := range hits {
		out[i] = h.loc
	}
	return out, nil
}

// matchScore ranks prefix matches over substring matches over tag and
// description matches. Zero means no match.
func matchScore(loc *domain.Location, q string) int {
	name := strings.ToLower(loc.Name)
	switch {
	case strings.HasPrefix(name, q):
		return 4
	case strings.Contains(name, q):
		return 3
	}
	for _, tag := range loc.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return 2
		}
	}
	if strings.Contains(strings.ToLower(loc.Description), q) {
		return 1
	}
	return 0
}

// --- ports.CategoryRepository ---

func (s *Store) UpsertCategoryBatch(ctx context.Context, cats []domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cat := range cats {
		bundle, ok := s.bundles[cat.SiteID]
		if !ok {
			return fmt.Errorf("category %s references unknown site %s", cat.ID, cat.SiteID)
		}
		replaced := false
		for i := range bundle.Site.Categories {
			if bundle.Site.Categories[i].ID == cat.ID {
				bundle.Site.Categories[i] = cat
				replaced = true
				break
			}
		}
		if !replaced {
			bundle.Site.Categories = append(bundle.Site.Categories, cat)
		}
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, bundle := range s.bundles {
		for _, cat := range bundle.Site.Categories {
			if cat.ID == id {
				out := cat
				return &out, nil
			}
		}
	}
	return nil, fmt.Errorf("category %s not found", id)
}

func (s *Store) ListCategoriesBySite(ctx context.Context, siteID string) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bundle, ok := s.bundles[siteID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.Category, len(bundle.Site.Categories))
	copy(out, bundle.Site.Categories)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SearchCategories(ctx context.Context, siteID, query string, limit int) ([]domain.Category, error) {
	cats, err := s.ListCategoriesBySite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []domain.Category
	for _, cat := range cats {
		if strings.Contains(strings.ToLower(cat.Name), q) {
			out = append(out, cat)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- ports.ConnectorRepository ---

func (s *Store) UpsertConnectorBatch(ctx context.Context, conns []domain.Connector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, conn := range conns {
		bundle, ok := s.bundles[conn.SiteID]
		if !ok {
			return fmt.Errorf("connector %s references unknown site %s", conn.ID, conn.SiteID)
		}
		replaced := false
		for i := range bundle.Connectors {
			if bundle.Connectors[i].ID == conn.ID {
				bundle.Connectors[i] = conn
				replaced = true
				break
			}
		}
		if !replaced {
			bundle.Connectors = append(bundle.Connectors, conn)
		}
	}
	return nil
}

func (s *Store) ListConnectorsBySite(ctx context.Context, siteID string) ([]domain.Connector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bundle, ok := s.bundles[siteID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.Connector, len(bundle.Connectors))
	copy(out, bundle.Connectors)
	return out, nil
}

// The Store itself satisfies ports.SiteRepository. The other ports
// share method names, so they are exposed as views.

// LocationView adapts the store to ports.LocationRepository.
type LocationView struct{ s *Store }

// Locations returns the store's location repository view.
func (s *Store) Locations() *LocationView { return &LocationView{s: s} }

func (v *LocationView) Upsert(ctx context.Context, loc *domain.Location) error {
	return v.s.UpsertLocation(ctx, loc)
}

func (v *LocationView) UpsertBatch(ctx context.Context, locs []domain.Location) error {
	return v.s.UpsertLocationBatch(ctx, locs)
}

func (v *LocationView) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	return v.s.GetLocation(ctx, id)
}

func (v *LocationView) GetByIDs(ctx context.Context, ids []string) ([]domain.Location, error) {
	return v.s.GetLocations(ctx, ids)
}

func (v *LocationView) ListByFloor(ctx context.Context, floorID string) ([]domain.Location, error) {
	return v.s.ListByFloor(ctx, floorID)
}

func (v *LocationView) ListByCategory(ctx context.Context, siteID, categoryID string) ([]domain.Location, error) {
	return v.s.ListByCategory(ctx, siteID, categoryID)
}

func (v *LocationView) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Location, error) {
	return v.s.FindNearby(ctx, lat, lon, radiusMeters, limit)
}

func (v *LocationView) Search(ctx context.Context, siteID, query string, near *domain.GeoPoint, limit int) ([]domain.Location, error) {
	return v.s.Search(ctx, siteID, query, near, limit)
}

// CategoryView adapts the store to ports.CategoryRepository.
type CategoryView struct{ s *Store }

// Categories returns the store's category repository view.
func (s *Store) Categories() *CategoryView { return &CategoryView{s: s} }

func (v *CategoryView) UpsertBatch(ctx context.Context, cats []domain.Category) error {
	return v.s.UpsertCategoryBatch(ctx, cats)
}

func (v *CategoryView) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	return v.s.GetCategory(ctx, id)
}

func (v *CategoryView) ListBySite(ctx context.Context, siteID string) ([]domain.Category, error) {
	return v.s.ListCategoriesBySite(ctx, siteID)
}

func (v *CategoryView) Search(ctx context.Context, siteID, query string, limit int) ([]domain.Category, error) {
	return v.s.SearchCategories(ctx, siteID, query, limit)
}

// ConnectorView adapts the store to ports.ConnectorRepository.
type ConnectorView struct{ s *Store }

// Connectors returns the store's connector repository view.
func (s *Store) Connectors() *ConnectorView { return &ConnectorView{s: s} }

func (v *ConnectorView) UpsertBatch(ctx context.Context, conns []domain.Connector) error {
	return v.s.UpsertConnectorBatch(ctx, conns)
}

func (v *ConnectorView) ListBySite(ctx context.Context, siteID string) ([]domain.Connector, error) {
	return v.s.ListConnectorsBySite(ctx, siteID)
}
