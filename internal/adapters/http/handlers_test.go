package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/becomap/becomap-go/internal/adapters/http"
	"github.com/becomap/becomap-go/internal/core/domain"
	"github.com/becomap/becomap-go/internal/core/usecases"
	"github.com/becomap/becomap-go/pkg/becomap"
)

// ---- Mock repositories ----

type mockSiteRepo struct {
	listFn      func(ctx context.Context) ([]domain.Site, error)
	getByIDFn   func(ctx context.Context, id string) (*domain.Site, error)
	getBySlugFn func(ctx context.Context, slug string) (*domain.Site, error)
	getBundleFn func(ctx context.Context, siteID string) (*domain.Bundle, error)
}

func (m *mockSiteRepo) Upsert(ctx context.Context, s *domain.Site) error { return nil }
func (m *mockSiteRepo) List(ctx context.Context) ([]domain.Site, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}
func (m *mockSiteRepo) GetByID(ctx context.Context, id string) (*domain.Site, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockSiteRepo) GetBySlug(ctx context.Context, slug string) (*domain.Site, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, nil
}
func (m *mockSiteRepo) GetBundle(ctx context.Context, siteID string) (*domain.Bundle, error) {
	if m.getBundleFn != nil {
		return m.getBundleFn(ctx, siteID)
	}
	return nil, nil
}

type mockLocationRepo struct {
	findNearbyFn     func(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Location, error)
	getByIDFn        func(ctx context.Context, id string) (*domain.Location, error)
	getByIDsFn       func(ctx context.Context, ids []string) ([]domain.Location, error)
	listByFloorFn    func(ctx context.Context, floorID string) ([]domain.Location, error)
	listByCategoryFn func(ctx context.Context, siteID, categoryID string) ([]domain.Location, error)
	searchFn         func(ctx context.Context, siteID, query string, near *domain.GeoPoint, limit int) ([]domain.Location, error)
}

func (m *mockLocationRepo) Upsert(ctx context.Context, l *domain.Location) error       { return nil }
func (m *mockLocationRepo) UpsertBatch(ctx context.Context, l []domain.Location) error { return nil }
func (m *mockLocationRepo) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
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

type mockCategoryRepo struct {
	getByIDFn    func(ctx context.Context, id string) (*domain.Category, error)
	listBySiteFn func(ctx context.Context, siteID string) ([]domain.Category, error)
	searchFn     func(ctx context.Context, siteID, query string, limit int) ([]domain.Category, error)
}

func (m *mockCategoryRepo) UpsertBatch(ctx context.Context, c []domain.Category) error { return nil }
func (m *mockCategoryRepo) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
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

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	venues := usecases.NewVenueService(&mockSiteRepo{}, &mockLocationRepo{}, &mockCategoryRepo{}, nil)
	d := &handler.Dependencies{
		Venues:   venues,
		Search:   usecases.NewSearchService(&mockLocationRepo{}, &mockCategoryRepo{}),
		Routes:   usecases.NewRoutePlanner(venues, nil),
		Sessions: usecases.NewSessionService(nil, "test"),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// testBundle assembles a small two-floor venue with a connecting
// elevator, enough to exercise floors, search, and routing.
func testBundle() *domain.Bundle {
	return &domain.Bundle{
		Site: domain.Site{
			ID:      "site-1",
			Slug:    "aurora",
			Name:    "Aurora Galleria",
			Center:  domain.GeoPoint{Lat: 43.2630, Lon: -2.9350},
			Version: 3,
			Buildings: []domain.Building{
				{
					ID: "b-1", SiteID: "site-1", Name: "Main Hall",
					Floors: []domain.Floor{
						{ID: "f-0", BuildingID: "b-1", Name: "Ground Floor", ShortName: "G", Level: 0, Elevation: 0},
						{ID: "f-1", BuildingID: "b-1", Name: "First Floor", ShortName: "1", Level: 1, Elevation: 4},
					},
				},
			},
			Categories: []domain.Category{
				{ID: "cat-coffee", SiteID: "site-1", Name: "Coffee", IconName: "cup"},
				{ID: "cat-books", SiteID: "site-1", Name: "Books", IconName: "book"},
			},
		},
		Locations: []domain.Location{
			{ID: "loc-cafe", FloorID: "f-0", CategoryID: "cat-coffee", Name: "Cloud Nine Coffee",
				Center: domain.GeoPoint{Lat: 43.2632, Lon: -2.9348}},
			{ID: "loc-info", FloorID: "f-0", Name: "Information Desk",
				Center: domain.GeoPoint{Lat: 43.2628, Lon: -2.9352}},
			{ID: "loc-books", FloorID: "f-1", CategoryID: "cat-books", Name: "Leaf & Letter Books",
				Center: domain.GeoPoint{Lat: 43.2633, Lon: -2.9346}},
		},
		Connectors: []domain.Connector{
			{ID: "conn-1", SiteID: "site-1", Kind: domain.ConnectorElevator, Name: "Central Elevator",
				FromFloorID: "f-0", ToFloorID: "f-1",
				Point: domain.GeoPoint{Lat: 43.2631, Lon: -2.9349}, TraverseSec: 25},
		},
	}
}

// bundleDeps wires dependencies over a fixed bundle so site resolution
// and routing work end to end.
func bundleDeps(bundle *domain.Bundle) *handler.Dependencies {
	sites := &mockSiteRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Site, error) {
			if id == bundle.Site.ID {
				s := bundle.Site
				return &s, nil
			}
			return nil, fmt.Errorf("no such site")
		},
		getBySlugFn: func(ctx context.Context, slug string) (*domain.Site, error) {
			if slug == bundle.Site.Slug {
				s := bundle.Site
				return &s, nil
			}
			return nil, fmt.Errorf("no such site")
		},
		getBundleFn: func(ctx context.Context, siteID string) (*domain.Bundle, error) {
			if siteID == bundle.Site.ID {
				return bundle, nil
			}
			return nil, fmt.Errorf("no such site")
		},
	}
	venues := usecases.NewVenueService(sites, &mockLocationRepo{}, &mockCategoryRepo{}, nil)
	return &handler.Dependencies{
		Venues:   venues,
		Search:   usecases.NewSearchService(&mockLocationRepo{}, &mockCategoryRepo{}),
		Routes:   usecases.NewRoutePlanner(venues, nil),
		Sessions: usecases.NewSessionService(nil, "test"),
	}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

// ---- Site handler tests ----

func TestListSites_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Venues = usecases.NewVenueService(&mockSiteRepo{
			listFn: func(ctx context.Context) ([]domain.Site, error) {
				return []domain.Site{
					{ID: "site-1", Slug: "aurora", Name: "Aurora Galleria"},
					{ID: "site-2", Slug: "harborview", Name: "Harborview Terminal"},
				}, nil
			},
		}, &mockLocationRepo{}, &mockCategoryRepo{}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/sites", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Site `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 2 {
		t.Errorf("expected total 2, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 sites, got %d", len(result.Data))
	}
}

func TestListSites_Pagination(t *testing.T) {
	sites := make([]domain.Site, 5)
	for i := range sites {
		sites[i] = domain.Site{ID: fmt.Sprintf("site-%d", i), Name: fmt.Sprintf("Site %d", i)}
	}

	deps := makeDeps(func(d *handler.Dependencies) {
		d.Venues = usecases.NewVenueService(&mockSiteRepo{
			listFn: func(ctx context.Context) ([]domain.Site, error) { return sites, nil },
		}, &mockLocationRepo{}, &mockCategoryRepo{}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/sites?offset=2&limit=2", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Site `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Limit  int `json:"limit"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 sites in page, got %d", len(result.Data))
	}
	if result.Pagination.Offset != 2 {
		t.Errorf("expected offset 2, got %d", result.Pagination.Offset)
	}
}

func TestListSites_LinkHeader(t *testing.T) {
	sites := make([]domain.Site, 10)
	for i := range sites {
		sites[i] = domain.Site{ID: fmt.Sprintf("site-%d", i), Name: fmt.Sprintf("Site %d", i)}
	}

	deps := makeDeps(func(d *handler.Dependencies) {
		d.Venues = usecases.NewVenueService(&mockSiteRepo{
			listFn: func(ctx context.Context) ([]domain.Site, error) { return sites, nil },
		}, &mockLocationRepo{}, &mockCategoryRepo{}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/sites?offset=0&limit=3", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	link := resp.Header.Get("Link")
	if link == "" {
		t.Fatal("expected Link header, got empty")
	}
	if !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected next link, got %s", link)
	}
	if !strings.Contains(link, `rel="first"`) {
		t.Errorf("expected first link, got %s", link)
	}
	if !strings.Contains(link, `rel="last"`) {
		t.Errorf("expected last link, got %s", link)
	}
}

func TestGetSite_Success(t *testing.T) {
	app := setupApp(bundleDeps(testBundle()))

	req := httptest.NewRequest("GET", "/v1/sites/aurora", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var site domain.Site
	json.NewDecoder(resp.Body).Decode(&site)
	if site.Slug != "aurora" {
		t.Errorf("expected slug aurora, got %s", site.Slug)
	}
}

func TestGetSite_NotFound(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Venues = usecases.NewVenueService(&mockSiteRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.Site, error) {
				return nil, fmt.Errorf("not found")
			},
			getBySlugFn: func(ctx context.Context, slug string) (*domain.Site, error) {
				return nil, fmt.Errorf("not found")
			},
		}, &mockLocationRepo{}, &mockCategoryRepo{}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/sites/nonexistent-id", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSiteFloors_Success(t *testing.T) {
	app := setupApp(bundleDeps(testBundle()))

	req := httptest.NewRequest("GET", "/v1/sites/site-1/floors", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var floors []domain.Floor
	json.NewDecoder(resp.Body).Decode(&floors)
	if len(floors) != 2 {
		t.Errorf("expected 2 floors, got %d", len(floors))
	}
}

func TestSiteBundle_Success(t *testing.T) {
	app := setupApp(bundleDeps(testBundle()))

	req := httptest.NewRequest("GET", "/v1/sites/site-1/bundle", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var bundle domain.Bundle
	json.NewDecoder(resp.Body).Decode(&bundle)
	if bundle.Site.ID != "site-1" {
		t.Errorf("expected site-1, got %s", bundle.Site.ID)
	}
	if len(bundle.Locations) != 3 {
		t.Errorf("expected 3 locations, got %d", len(bundle.Locations))
	}
}

// ---- Location handler tests ----

func TestNearbyLocations_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Venues = usecases.NewVenueService(&mockSiteRepo{}, &mockLocationRepo{
			findNearbyFn: func(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Location, error) {
				return []domain.Location{
					{ID: "loc-1", Name: "Cloud Nine Coffee", Center: domain.GeoPoint{Lat: 43.263, Lon: -2.935}},
				}, nil
			},
		}, &mockCategoryRepo{}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/locations/nearby?lat=43.263&lon=-2.935&radius=200", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var locations []domain.Location
	json.NewDecoder(resp.Body).Decode(&locations)
	if len(locations) != 1 {
		t.Errorf("expected 1 location, got %d", len(locations))
	}
}

func TestNearbyLocations_MissingParams(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/locations/nearby", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Status int    `json:"status"`
		Code   string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "bad_request" {
		t.Errorf("expected bad_request error, got %s", apiErr.Code)
	}
}

func TestNearbyLocations_BadRadius(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/locations/nearby?lat=43.26&lon=-2.93&radius=50000", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestNearbyLocations_CacheControlHeader(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Venues = usecases.NewVenueService(&mockSiteRepo{}, &mockLocationRepo{
			findNearbyFn: func(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Location, error) {
				return []domain.Location{}, nil
			},
		}, &mockCategoryRepo{}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/locations/nearby?lat=43.26&lon=-2.93", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cc := resp.Header.Get("Cache-Control")
	if cc != "public, max-age=300" {
		t.Errorf("expected Cache-Control header, got %q", cc)
	}
}

func TestBatchLocations_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Venues = usecases.NewVenueService(&mockSiteRepo{}, &mockLocationRepo{
			getByIDsFn: func(ctx context.Context, ids []string) ([]domain.Location, error) {
				out := make([]domain.Location, len(ids))
				for i, id := range ids {
					out[i] = domain.Location{ID: id, Name: "Location " + id}
				}
				return out, nil
			},
		}, &mockCategoryRepo{}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/locations/batch?ids=loc-1,loc-2", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var locations []domain.Location
	json.NewDecoder(resp.Body).Decode(&locations)
	if len(locations) != 2 {
		t.Errorf("expected 2 locations, got %d", len(locations))
	}
}

func TestBatchLocations_TooMany(t *testing.T) {
	app := setupApp(makeDeps())

	ids := make([]string, 101)
	for i := range ids {
		ids[i] = fmt.Sprintf("loc-%d", i)
	}
	req := httptest.NewRequest("GET", "/v1/locations/batch?ids="+strings.Join(ids, ","), nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetLocation_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Venues = usecases.NewVenueService(&mockSiteRepo{}, &mockLocationRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.Location, error) {
				return &domain.Location{ID: id, Name: "Cloud Nine Coffee"}, nil
			},
		}, &mockCategoryRepo{}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/locations/loc-1", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var loc domain.Location
	json.NewDecoder(resp.Body).Decode(&loc)
	if loc.Name != "Cloud Nine Coffee" {
		t.Errorf("expected Cloud Nine Coffee, got %s", loc.Name)
	}
}

func TestGetLocation_NotFound(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Venues = usecases.NewVenueService(&mockSiteRepo{}, &mockLocationRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.Location, error) {
				return nil, fmt.Errorf("not found")
			},
		}, &mockCategoryRepo{}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/locations/missing", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestFloorLocations_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Venues = usecases.NewVenueService(&mockSiteRepo{}, &mockLocationRepo{
			listByFloorFn: func(ctx context.Context, floorID string) ([]domain.Location, error) {
				return []domain.Location{
					{ID: "loc-1", FloorID: floorID, Name: "Cloud Nine Coffee"},
					{ID: "loc-2", FloorID: floorID, Name: "Information Desk"},
				}, nil
			},
		}, &mockCategoryRepo{}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/floors/f-0/locations", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var locations []domain.Location
	json.NewDecoder(resp.Body).Decode(&locations)
	if len(locations) != 2 {
		t.Errorf("expected 2 locations, got %d", len(locations))
	}
}

func TestCategoryLocations_Success(t *testing.T) {
	deps := bundleDeps(testBundle())
	deps.Venues = usecases.NewVenueService(&mockSiteRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Site, error) {
			s := testBundle().Site
			return &s, nil
		},
	}, &mockLocationRepo{
		listByCategoryFn: func(ctx context.Context, siteID, categoryID string) ([]domain.Location, error) {
			return []domain.Location{
				{ID: "loc-cafe", CategoryID: categoryID, Name: "Cloud Nine Coffee"},
			}, nil
		},
	}, &mockCategoryRepo{}, nil)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/sites/site-1/categories/cat-coffee/locations", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var locations []domain.Location
	json.NewDecoder(resp.Body).Decode(&locations)
	if len(locations) != 1 {
		t.Errorf("expected 1 location, got %d", len(locations))
	}
}

// ---- Search handler tests ----

func TestSearchLocations_Success(t *testing.T) {
	deps := bundleDeps(testBundle())
	deps.Search = usecases.NewSearchService(&mockLocationRepo{
		searchFn: func(ctx context.Context, siteID, query string, near *domain.GeoPoint, limit int) ([]domain.Location, error) {
			return []domain.Location{
				{ID: "loc-cafe", Name: "Cloud Nine Coffee"},
			}, nil
		},
	}, &mockCategoryRepo{})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/sites/site-1/locations/search?q=coffee", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var locations []domain.Location
	json.NewDecoder(resp.Body).Decode(&locations)
	if len(locations) != 1 {
		t.Errorf("expected 1 location, got %d", len(locations))
	}
}

func TestSearchLocations_MissingQuery(t *testing.T) {
	app := setupApp(bundleDeps(testBundle()))

	req := httptest.NewRequest("GET", "/v1/sites/site-1/locations/search", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSearchLocations_QueryTooLong(t *testing.T) {
	app := setupApp(bundleDeps(testBundle()))

	long := strings.Repeat("x", 101)
	req := httptest.NewRequest("GET", "/v1/sites/site-1/locations/search?q="+long, nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSearchCategories_Success(t *testing.T) {
	deps := bundleDeps(testBundle())
	deps.Search = usecases.NewSearchService(&mockLocationRepo{}, &mockCategoryRepo{
		searchFn: func(ctx context.Context, siteID, query string, limit int) ([]domain.Category, error) {
			return []domain.Category{
				{ID: "cat-coffee", Name: "Coffee"},
			}, nil
		},
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/sites/site-1/categories/search?q=cof", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var categories []domain.Category
	json.NewDecoder(resp.Body).Decode(&categories)
	if len(categories) != 1 {
		t.Errorf("expected 1 category, got %d", len(categories))
	}
}

// ---- Route handler tests ----

func TestComputeRoute_Success(t *testing.T) {
	app := setupApp(bundleDeps(testBundle()))

	body, _ := json.Marshal(map[string]interface{}{
		"siteId": "site-1",
		"waypoints": []becomap.RouteWaypoint{
			{LocationID: "loc-cafe"},
			{LocationID: "loc-books"},
		},
	})
	req := httptest.NewRequest("POST", "/v1/routes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var route becomap.Route
	json.NewDecoder(resp.Body).Decode(&route)
	if route.ID == "" {
		t.Fatal("expected route id")
	}
	// Crossing floors must produce one segment per floor
	if len(route.Segments) != 2 {
		t.Errorf("expected 2 segments, got %d", len(route.Segments))
	}
	if route.Distance <= 0 {
		t.Errorf("expected positive distance, got %f", route.Distance)
	}
}

func TestComputeRoute_TooFewWaypoints(t *testing.T) {
	app := setupApp(bundleDeps(testBundle()))

	body, _ := json.Marshal(map[string]interface{}{
		"siteId": "site-1",
		"waypoints": []becomap.RouteWaypoint{
			{LocationID: "loc-cafe"},
		},
	})
	req := httptest.NewRequest("POST", "/v1/routes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetRouteRecall_Success(t *testing.T) {
	app := setupApp(bundleDeps(testBundle()))

	body, _ := json.Marshal(map[string]interface{}{
		"siteId": "site-1",
		"waypoints": []becomap.RouteWaypoint{
			{LocationID: "loc-cafe"},
			{LocationID: "loc-info"},
		},
	})
	req := httptest.NewRequest("POST", "/v1/routes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created becomap.Route
	json.NewDecoder(resp.Body).Decode(&created)

	req = httptest.NewRequest("GET", "/v1/routes/"+created.ID, nil)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var recalled becomap.Route
	json.NewDecoder(resp.Body).Decode(&recalled)
	if recalled.ID != created.ID {
		t.Errorf("expected route %s, got %s", created.ID, recalled.ID)
	}
}

func TestGetRouteRecall_NotFound(t *testing.T) {
	app := setupApp(bundleDeps(testBundle()))

	req := httptest.NewRequest("GET", "/v1/routes/rt-missing", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "route_not_found" {
		t.Errorf("expected route_not_found, got %s", apiErr.Code)
	}
}

// ---- Legacy search ----

func TestLegacySearch_DeprecationHeaders(t *testing.T) {
	deps := bundleDeps(testBundle())
	deps.Search = usecases.NewSearchService(&mockLocationRepo{
		searchFn: func(ctx context.Context, siteID, query string, near *domain.GeoPoint, limit int) ([]domain.Location, error) {
			return []domain.Location{{ID: "loc-cafe", Name: "Cloud Nine Coffee"}}, nil
		},
	}, &mockCategoryRepo{
		searchFn: func(ctx context.Context, siteID, query string, limit int) ([]domain.Category, error) {
			return []domain.Category{{ID: "cat-coffee", Name: "Coffee"}}, nil
		},
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/search?site_id=site-1&q=coffee", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if resp.Header.Get("Deprecation") != "true" {
		t.Error("expected Deprecation header")
	}
	if resp.Header.Get("Sunset") == "" {
		t.Error("expected Sunset header")
	}
	if !strings.Contains(resp.Header.Get("Link"), `rel="successor-version"`) {
		t.Errorf("expected successor-version link, got %s", resp.Header.Get("Link"))
	}

	body := readBody(t, resp.Body)
	if !strings.Contains(string(body), "Cloud Nine Coffee") {
		t.Errorf("expected locations in body, got %s", body)
	}
	if !strings.Contains(string(body), "Coffee") {
		t.Errorf("expected categories in body, got %s", body)
	}
}

// ---- Health handler tests ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if result["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", result["status"])
	}
}

func TestReady_MemoryMode(t *testing.T) {
	deps := makeDeps()
	// DB, NATS, Cache are nil: the engine can still serve from memory
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/ready", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Status != "ready" {
		t.Errorf("expected ready, got %s", result.Status)
	}
	if result.Checks["database"] != "not configured" {
		t.Errorf("expected database not configured, got %s", result.Checks["database"])
	}
}

// ---- X-API-Version header ----

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	v := resp.Header.Get("X-API-Version")
	if v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
}

// TestAccessLogMiddleware verifies structured access logging is emitted.
func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()

	app.Use(handler.AccessLogMiddleware())

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "test-req-123")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", string(body))
	}
}
