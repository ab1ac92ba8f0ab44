package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/becomap/becomap-go/internal/core/domain"
)

// --- Mock SiteRepository ---

type mockSiteRepo struct {
	upsertFn    func(ctx context.Context, site *domain.Site) error
	getByIDFn   func(ctx context.Context, id string) (*domain.Site, error)
	getBySlugFn func(ctx context.Context, slug string) (*domain.Site, error)
	listFn      func(ctx context.Context) ([]domain.Site, error)
	getBundleFn func(ctx context.Context, siteID string) (*domain.Bundle, error)
}

func (m *mockSiteRepo) Upsert(ctx context.Context, site *domain.Site) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, site)
	}
	return nil
}

func (m *mockSiteRepo) GetByID(ctx context.Context, id string) (*domain.Site, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, errors.New("not found")
}

func (m *mockSiteRepo) GetBySlug(ctx context.Context, slug string) (*domain.Site, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, errors.New("not found")
}

func (m *mockSiteRepo) List(ctx context.Context) ([]domain.Site, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockSiteRepo) GetBundle(ctx context.Context, siteID string) (*domain.Bundle, error) {
	if m.getBundleFn != nil {
		return m.getBundleFn(ctx, siteID)
	}
	return nil, errors.New("not found")
}

// --- Mock LocationRepository ---

type mockLocationRepo struct {
	upsertBatchFn    func(ctx context.Context, locs []domain.Location) error
	getByIDFn        func(ctx context.Context, id string) (*domain.Location, error)
	getByIDsFn       func(ctx context.Context, ids []string) ([]domain.Location, error)
	listByFloorFn    func(ctx context.Context, floorID string) ([]domain.Location, error)
	listByCategoryFn func(ctx context.Context, siteID, categoryID string) ([]domain.Location, error)
	findNearbyFn     func(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Location, error)
	searchFn         func(ctx context.Context, siteID, query string, near *domain.GeoPoint, limit int) ([]domain.Location, error)
}

func (m *mockLocationRepo) Upsert(ctx context.Context, loc *domain.Location) error { return nil }
func (m *mockLocationRepo) UpsertBatch(ctx context.Context, locs []domain.Location) error {
	if m.upsertBatchFn != nil {
		return m.upsertBatchFn(ctx, locs)
	}
	return nil
}

func (m *mockLocationRepo) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, errors.New("not found")
}

func (m *mockLocationRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Location, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockLocationRepo) ListByFloor(ctx context.Context, floorID string) ([]domain.Location, error) {
	if m.listByFloorFn != nil {
		return m.listByFloorFn(ctx, floorID)
	}
	return nil, nil
}

func (m *mockLocationRepo) ListByCategory(ctx context.Context, siteID, categoryID string) ([]domain.Location, error) {
	if m.listByCategoryFn != nil {
		return m.listByCategoryFn(ctx, siteID, categoryID)
	}
	return nil, nil
}

func (m *mockLocationRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Location, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, lat, lon, radiusMeters, limit)
	}
	return nil, nil
}

func (m *mockLocationRepo) Search(ctx context.Context, siteID, query string, near *domain.GeoPoint, limit int) ([]domain.Location, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, siteID, query, near, limit)
	}
	return nil, nil
}

// --- Mock CategoryRepository ---

type mockCategoryRepo struct {
	upsertBatchFn func(ctx context.Context, cats []domain.Category) error
	listBySiteFn  func(ctx context.Context, siteID string) ([]domain.Category, error)
	searchFn      func(ctx context.Context, siteID, query string, limit int) ([]domain.Category, error)
}

func (m *mockCategoryRepo) UpsertBatch(ctx context.Context, cats []domain.Category) error {
	if m.upsertBatchFn != nil {
		return m.upsertBatchFn(ctx, cats)
	}
	return nil
}

func (m *mockCategoryRepo) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	return nil, errors.New("not found")
}

func (m *mockCategoryRepo) ListBySite(ctx context.Context, siteID string) ([]domain.Category, error) {
	if m.listBySiteFn != nil {
		return m.listBySiteFn(ctx, siteID)
	}
	return nil, nil
}

func (m *mockCategoryRepo) Search(ctx context.Context, siteID, query string, limit int) ([]domain.Category, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, siteID, query, limit)
	}
	return nil, nil
}

// --- Mock CacheService ---

type mockCache struct {
	store   map[string][]byte
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{store: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := m.store[key]; ok {
		return data, nil
	}
	return nil, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.store[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.store, key)
	return nil
}

// --- Fixtures ---

func testBundle() *domain.Bundle {
	return &domain.Bundle{
		Site: domain.Site{
			ID:      "site-1",
			Slug:    "aurora",
			Name:    "Aurora Galleria",
			Version: 3,
			Center:  domain.GeoPoint{Lat: 47.61, Lon: -122.33},
			Buildings: []domain.Building{
				{
					ID:     "bld-1",
					SiteID: "site-1",
					Name:   "Main",
					Floors: []domain.Floor{
						{ID: "fl-g", BuildingID: "bld-1", Name: "Ground", Level: 0},
						{ID: "fl-1", BuildingID: "bld-1", Name: "Level 1", Level: 1, Elevation: 5},
					},
				},
			},
			Categories: []domain.Category{
				{ID: "cat-food", SiteID: "site-1", Name: "Food & Drink"},
			},
		},
		Locations: []domain.Location{
			{ID: "loc-cafe", FloorID: "fl-g", Name: "Atrium Cafe", CategoryID: "cat-food",
				Center: domain.GeoPoint{Lat: 47.6101, Lon: -122.3299}},
			{ID: "loc-books", FloorID: "fl-1", Name: "Harbor Books",
				Center: domain.GeoPoint{Lat: 47.6103, Lon: -122.3301}},
		},
		Connectors: []domain.Connector{
			{ID: "con-elev", SiteID: "site-1", Kind: domain.ConnectorElevator, Name: "Central Elevator",
				FromFloorID: "fl-g", ToFloorID: "fl-1",
				Point: domain.GeoPoint{Lat: 47.6102, Lon: -122.33}, TraverseSec: 25},
		},
	}
}

// --- Tests ---

func TestGetBundleCachesResult(t *testing.T) {
	calls := 0
	sites := &mockSiteRepo{
		getBundleFn: func(ctx context.Context, siteID string) (*domain.Bundle, error) {
			calls++
			return testBundle(), nil
		},
	}
	cache := newMockCache()
	svc := NewVenueService(sites, &mockLocationRepo{}, &mockCategoryRepo{}, cache)

	first, err := svc.GetBundle(context.Background(), "site-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.GetBundle(context.Background(), "site-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls != 1 {
		t.Errorf("expected 1 repository call, got %d", calls)
	}
	if first.Site.ID != second.Site.ID || second.Site.Name != "Aurora Galleria" {
		t.Errorf("cached bundle differs from original")
	}
}

func TestGetBundleSkipsCorruptCacheEntry(t *testing.T) {
	sites := &mockSiteRepo{
		getBundleFn: func(ctx context.Context, siteID string) (*domain.Bundle, error) {
			return testBundle(), nil
		},
	}
	cache := newMockCache()
	cache.store["site:site-1:bundle"] = []byte("{not json")

	svc := NewVenueService(sites, &mockLocationRepo{}, &mockCategoryRepo{}, cache)
	bundle, err := svc.GetBundle(context.Background(), "site-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bundle.Site.ID != "site-1" {
		t.Errorf("expected site-1, got %s", bundle.Site.ID)
	}
}

func TestGetSiteFallsBackToSlug(t *testing.T) {
	sites := &mockSiteRepo{
		getBySlugFn: func(ctx context.Context, slug string) (*domain.Site, error) {
			if slug != "aurora" {
				return nil, errors.New("not found")
			}
			s := testBundle().Site
			return &s, nil
		},
	}
	svc := NewVenueService(sites, &mockLocationRepo{}, &mockCategoryRepo{}, nil)

	site, err := svc.GetSite(context.Background(), "aurora")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if site.ID != "site-1" {
		t.Errorf("expected site-1, got %s", site.ID)
	}
}

func TestFindNearbyClampsInputs(t *testing.T) {
	var gotRadius float64
	var gotLimit int
	locations := &mockLocationRepo{
		findNearbyFn: func(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Location, error) {
			gotRadius = radiusMeters
			gotLimit = limit
			return []domain.Location{}, nil
		},
	}
	svc := NewVenueService(&mockSiteRepo{}, locations, &mockCategoryRepo{}, nil)

	if _, err := svc.FindNearbyLocations(context.Background(), 47.61, -122.33, 99999, 5000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotRadius != 500 {
		t.Errorf("expected radius clamped to 500, got %.0f", gotRadius)
	}
	if gotLimit != 20 {
		t.Errorf("expected limit clamped to 20, got %d", gotLimit)
	}
}

func TestListFloorsFlattensBuildings(t *testing.T) {
	sites := &mockSiteRepo{
		getBundleFn: func(ctx context.Context, siteID string) (*domain.Bundle, error) {
			return testBundle(), nil
		},
	}
	svc := NewVenueService(sites, &mockLocationRepo{}, &mockCategoryRepo{}, nil)

	floors, err := svc.ListFloors(context.Background(), "site-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(floors) != 2 {
		t.Fatalf("expected 2 floors, got %d", len(floors))
	}
	if floors[0].ID != "fl-g" || floors[1].ID != "fl-1" {
		t.Errorf("unexpected floor order: %s, %s", floors[0].ID, floors[1].ID)
	}
}

func TestInvalidateSiteDropsKeys(t *testing.T) {
	cache := newMockCache()
	cache.store["sites:list"] = []byte("[]")
	cache.store["site:site-1:bundle"] = []byte("{}")
	cache.store["site:site-1:categories"] = []byte("[]")

	svc := NewVenueService(&mockSiteRepo{}, &mockLocationRepo{}, &mockCategoryRepo{}, cache)
	svc.InvalidateSite(context.Background(), "site-1")

	if len(cache.deleted) != 3 {
		t.Fatalf("expected 3 deletes, got %d: %v", len(cache.deleted), cache.deleted)
	}
	if len(cache.store) != 0 {
		t.Errorf("expected empty cache, still holds %d keys", len(cache.store))
	}
}

func TestListSitesCachePopulated(t *testing.T) {
	sites := &mockSiteRepo{
		listFn: func(ctx context.Context) ([]domain.Site, error) {
			return []domain.Site{testBundle().Site}, nil
		},
	}
	cache := newMockCache()
	svc := NewVenueService(sites, &mockLocationRepo{}, &mockCategoryRepo{}, cache)

	if _, err := svc.ListSites(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, ok := cache.store["sites:list"]
	if !ok {
		t.Fatal("expected sites:list cache entry after read")
	}
	var cached []domain.Site
	if err := json.Unmarshal(data, &cached); err != nil {
		t.Fatalf("cache entry is not valid JSON: %v", err)
	}
	if len(cached) != 1 || cached[0].Slug != "aurora" {
		t.Errorf("unexpected cached sites: %+v", cached)
	}
}
