//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	handler "github.com/becomap/becomap-go/internal/adapters/http"
	"github.com/becomap/becomap-go/internal/adapters/postgres"
	"github.com/becomap/becomap-go/internal/core/domain"
	"github.com/becomap/becomap-go/internal/core/usecases"
	"github.com/becomap/becomap-go/internal/pkg/config"
)

// setupTestDB connects to the test database and returns a clean DB instance.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("mapsim-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	dsn := cfg.Database.DSN()
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}

	db := &postgres.DB{Pool: pool}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}

	return db
}

// setupTestDeps creates dependencies with real DB and repos, no cache.
func setupTestDeps(t *testing.T, db *postgres.DB) *handler.Dependencies {
	siteRepo := postgres.NewSiteRepo(db)
	locationRepo := postgres.NewLocationRepo(db)
	categoryRepo := postgres.NewCategoryRepo(db)

	venues := usecases.NewVenueService(siteRepo, locationRepo, categoryRepo, nil)
	return &handler.Dependencies{
		Venues:   venues,
		Search:   usecases.NewSearchService(locationRepo, categoryRepo),
		Routes:   usecases.NewRoutePlanner(venues, nil),
		Sessions: usecases.NewSessionService(nil, "test"),
		DB:       db,
	}
}

// seedTestSite inserts a site with one building and one ground floor,
// returning the site and floor IDs.
func seedTestSite(t *testing.T, db *postgres.DB, slug string) (string, string) {
	ctx := context.Background()
	siteID := "it-site-" + slug
	buildingID := "it-bldg-" + slug
	floorID := "it-floor-" + slug

	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO sites (id, slug, name, center, version)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint(-2.935, 43.263), 4326)::geography, 1)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, siteID, slug, "Test Venue "+slug); err != nil {
		t.Fatalf("seed site: %v", err)
	}
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO buildings (id, site_id, name)
		VALUES ($1, $2, 'Main Hall')
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, buildingID, siteID); err != nil {
		t.Fatalf("seed building: %v", err)
	}
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO floors (id, building_id, name, short_name, level, elevation)
		VALUES ($1, $2, 'Ground Floor', 'G', 0, 0)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, floorID, buildingID); err != nil {
		t.Fatalf("seed floor: %v", err)
	}
	return siteID, floorID
}

// seedTestLocation inserts a location on the given floor.
func seedTestLocation(t *testing.T, db *postgres.DB, floorID, locationID, name string) {
	ctx := context.Background()
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO locations (id, floor_id, name, center)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint(-2.935, 43.263), 4326)::geography)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, locationID, floorID, name); err != nil {
		t.Fatalf("seed location: %v", err)
	}
}

// TestListSites_Integration_WithRealDB tests site listing against a real database.
func TestListSites_Integration_WithRealDB(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	seedTestSite(t, db, "galleria")
	seedTestSite(t, db, "terminal")

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/sites", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Site       `json:"data"`
		Pagination struct{ Total int } `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if result.Pagination.Total < 2 {
		t.Errorf("expected at least 2 sites, got %d", result.Pagination.Total)
	}
}

// TestGetSite_Integration tests slug lookup against a real database.
func TestGetSite_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	slug := fmt.Sprintf("integ-%s", time.Now().Format("20060102150405"))
	seedTestSite(t, db, slug)

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/sites/"+slug, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var site domain.Site
	if err := json.NewDecoder(resp.Body).Decode(&site); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if site.Slug != slug {
		t.Errorf("expected slug %s, got %s", slug, site.Slug)
	}
	if len(site.Buildings) == 0 {
		t.Error("expected buildings loaded with the site")
	}
}

// TestNearbyLocations_Integration tests the geospatial query against a real database.
func TestNearbyLocations_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	_, floorID := seedTestSite(t, db, "spatial")
	// Bilbao coordinates: 43.263, -2.935
	seedTestLocation(t, db, floorID, "it-loc-spatial", "Abando Kiosk")

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/locations/nearby?lat=43.263&lon=-2.935&radius=5000", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var locations []domain.Location
	if err := json.NewDecoder(resp.Body).Decode(&locations); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(locations) == 0 {
		t.Error("expected at least 1 nearby location, got 0")
	}
}

// TestSiteBundle_Integration loads the full aggregate from the database.
func TestSiteBundle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	siteID, floorID := seedTestSite(t, db, "bundle")
	seedTestLocation(t, db, floorID, "it-loc-bundle", "Bundle Kiosk")

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/sites/"+siteID+"/bundle", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var bundle domain.Bundle
	if err := json.NewDecoder(resp.Body).Decode(&bundle); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if bundle.Site.ID != siteID {
		t.Errorf("expected site %s, got %s", siteID, bundle.Site.ID)
	}
	if len(bundle.Locations) == 0 {
		t.Error("expected locations in the bundle")
	}
}
