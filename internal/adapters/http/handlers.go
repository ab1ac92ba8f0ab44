package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/becomap/becomap-go/internal/core/domain"
	"github.com/becomap/becomap-go/pkg/becomap"
)

// VenueStats holds row counts across the published venue tables.
type VenueStats struct {
	Sites       int    `json:"sites"`
	Buildings   int    `json:"buildings"`
	Floors      int    `json:"floors"`
	Categories  int    `json:"categories"`
	Locations   int    `json:"locations"`
	Connectors  int    `json:"connectors"`
	LastPublish string `json:"last_publish,omitempty"`
}

// VenueStatsHandler returns row counts from the venue tables.
func VenueStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var stats VenueStats
		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				(SELECT count(*) FROM sites),
				(SELECT count(*) FROM buildings),
				(SELECT count(*) FROM floors),
				(SELECT count(*) FROM categories),
				(SELECT count(*) FROM locations),
				(SELECT count(*) FROM connectors),
				COALESCE((SELECT max(updated_at)::text FROM sites), '')
		`)
		if err := row.Scan(&stats.Sites, &stats.Buildings, &stats.Floors,
			&stats.Categories, &stats.Locations, &stats.Connectors, &stats.LastPublish); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}

// ListSitesHandler returns all published sites.
func ListSitesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sites, err := deps.Venues.ListSites(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}

		page, pg := paginate(c, sites, 100, 200)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// GetSiteHandler returns a single site by ID or slug.
func GetSiteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "site id is required")
		}
		site, err := deps.Venues.GetSite(c.Context(), id)
		if err != nil {
			return errNotFound(c, "site not found")
		}
		return c.JSON(site)
	}
}

// SiteBundleHandler returns the full map bundle for a site, the same
// payload the bridge loads on init.
func SiteBundleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "site id is required")
		}
		site, err := deps.Venues.GetSite(c.Context(), id)
		if err != nil {
			return errNotFound(c, "site not found")
		}
		bundle, err := deps.Venues.GetBundle(c.Context(), site.ID)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(bundle)
	}
}

// SiteFloorsHandler returns a site's floors ordered by level.
func SiteFloorsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "site id is required")
		}
		site, err := deps.Venues.GetSite(c.Context(), id)
		if err != nil {
			return errNotFound(c, "site not found")
		}
		floors, err := deps.Venues.ListFloors(c.Context(), site.ID)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(floors)
	}
}

// SiteCategoriesHandler returns a site's location categories.
func SiteCategoriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "site id is required")
		}
		site, err := deps.Venues.GetSite(c.Context(), id)
		if err != nil {
			return errNotFound(c, "site not found")
		}
		categories, err := deps.Venues.ListCategories(c.Context(), site.ID)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(categories)
	}
}

// CategoryLocationsHandler returns the locations tagged with a category.
func CategoryLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		categoryID := c.Params("categoryId")
		if id == "" || categoryID == "" {
			return errBadRequest(c, "site id and category id are required")
		}
		site, err := deps.Venues.GetSite(c.Context(), id)
		if err != nil {
			return errNotFound(c, "site not found")
		}
		locations, err := deps.Venues.ListCategoryLocations(c.Context(), site.ID, categoryID)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(locations)
	}
}

// SearchLocationsHandler performs fuzzy search on location names within
// a site. Optional lat/lon rank results by distance.
func SearchLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "site id is required")
		}
		query := strings.TrimSpace(c.Query("q"))
		if query == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(query) > becomap.MaxQueryLen {
			return errBadRequest(c, "query too long (max 100 characters)")
		}
		limit := c.QueryInt("limit", 20)
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		var near *domain.GeoPoint
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		if lat != 0 || lon != 0 {
			near = &domain.GeoPoint{Lat: lat, Lon: lon}
		}

		site, err := deps.Venues.GetSite(c.Context(), id)
		if err != nil {
			return errNotFound(c, "site not found")
		}
		locations, err := deps.Search.SearchLocations(c.Context(), site.ID, query, near, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		return c.JSON(locations)
	}
}

// SearchCategoriesHandler performs fuzzy search on category names
// within a site.
func SearchCategoriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "site id is required")
		}
		query := strings.TrimSpace(c.Query("q"))
		if query == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(query) > becomap.MaxQueryLen {
			return errBadRequest(c, "query too long (max 100 characters)")
		}
		limit := c.QueryInt("limit", 20)
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		site, err := deps.Venues.GetSite(c.Context(), id)
		if err != nil {
			return errNotFound(c, "site not found")
		}
		categories, err := deps.Search.SearchCategories(c.Context(), site.ID, query, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		return c.JSON(categories)
	}
}

// FloorLocationsHandler returns all locations on a floor.
func FloorLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "floor id is required")
		}
		locations, err := deps.Venues.ListFloorLocations(c.Context(), id)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=600")
		return c.JSON(locations)
	}
}

// NearbyLocationsHandler returns locations within a radius of a point.
func NearbyLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 250)
		limit := c.QueryInt("limit", 50)

		if lat == 0 || lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}
		if radius <= 0 || radius > 5000 {
			return errBadRequest(c, "radius must be between 1 and 5000 meters")
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		locations, err := deps.Venues.FindNearbyLocations(c.Context(), lat, lon, radius, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(locations)
	}
}

// BatchLocationsHandler returns multiple locations by ID.
func BatchLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ids := c.Query("ids", "")
		if ids == "" {
			return errBadRequest(c, "ids query parameter is required (comma-separated)")
		}

		var locationIDs []string
		for _, id := range strings.Split(ids, ",") {
			if trimmed := strings.TrimSpace(id); trimmed != "" {
				locationIDs = append(locationIDs, trimmed)
			}
		}

		if len(locationIDs) == 0 {
			return errBadRequest(c, "at least one location ID is required")
		}
		if len(locationIDs) > 100 {
			return errBadRequest(c, "maximum 100 location IDs allowed")
		}

		locations, err := deps.Venues.GetLocations(c.Context(), locationIDs)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(locations)
	}
}

// GetLocationHandler returns a single location by ID.
func GetLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "location id is required")
		}
		location, err := deps.Venues.GetLocation(c.Context(), id)
		if err != nil {
			return errNotFound(c, "location not found")
		}

		c.Set("Cache-Control", "public, max-age=600")
		return c.JSON(location)
	}
}

// routeRequest is the body of POST /v1/routes. Waypoints use the bridge
// wire schema so the same payload works on both surfaces.
type routeRequest struct {
	SiteID    string                  `json:"siteId"`
	Waypoints []becomap.RouteWaypoint `json:"waypoints"`
}

// ComputeRouteHandler plans a route through a site and stores it for
// later recall by ID.
func ComputeRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req routeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.SiteID == "" {
			return errBadRequest(c, "siteId is required")
		}

		site, err := deps.Venues.GetSite(c.Context(), req.SiteID)
		if err != nil {
			return errNotFound(c, "site not found")
		}

		route, err := deps.Routes.ComputeRoute(c.Context(), site.ID, req.Waypoints)
		if err != nil {
			return errCoded(c, err)
		}

		LoggerFromCtx(c.UserContext()).Info("route computed",
			"site_id", site.ID, "route_id", route.ID, "distance_m", route.Distance)
		return c.Status(fiber.StatusCreated).JSON(route)
	}
}

// GetRouteHandler recalls a previously computed route by ID.
func GetRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "route id is required")
		}
		route, err := deps.Routes.GetRoute(c.Context(), id)
		if err != nil {
			return errCoded(c, err)
		}
		return c.JSON(route)
	}
}

// SiteStatsHandler returns detailed stats for a single site.
func SiteStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "site id is required")
		}

		site, err := deps.Venues.GetSite(c.Context(), id)
		if err != nil {
			return errNotFound(c, "site not found")
		}

		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var stats struct {
			Buildings  int `json:"buildings"`
			Floors     int `json:"floors"`
			Categories int `json:"categories"`
			Locations  int `json:"locations"`
			Connectors int `json:"connectors"`
			Version    int `json:"version"`
		}

		row := deps.DB.Pool.QueryRow(c.Context(), `
            SELECT
                (SELECT count(*) FROM buildings WHERE site_id = $1),
                (SELECT count(*) FROM floors WHERE building_id IN (SELECT id FROM buildings WHERE site_id = $1)),
                (SELECT count(*) FROM categories WHERE site_id = $1),
                (SELECT count(*) FROM locations WHERE floor_id IN (SELECT f.id FROM floors f JOIN buildings b ON b.id = f.building_id WHERE b.site_id = $1)),
                (SELECT count(*) FROM connectors WHERE site_id = $1),
                (SELECT version FROM sites WHERE id = $1)
        `, site.ID)
		if err := row.Scan(&stats.Buildings, &stats.Floors, &stats.Categories,
			&stats.Locations, &stats.Connectors, &stats.Version); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(fiber.Map{
			"site":  site,
			"stats": stats,
		})
	}
}

// SiteFloorSummaryHandler returns per-floor location counts for a site.
func SiteFloorSummaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "site id is required")
		}

		site, err := deps.Venues.GetSite(c.Context(), id)
		if err != nil {
			return errNotFound(c, "site not found")
		}

		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		rows, err := deps.DB.Pool.Query(c.Context(), `
            SELECT f.id, f.name, f.short_name, f.level, count(l.id)
            FROM floors f
            JOIN buildings b ON b.id = f.building_id
            LEFT JOIN locations l ON l.floor_id = f.id
            WHERE b.site_id = $1
            GROUP BY f.id, f.name, f.short_name, f.level
            ORDER BY f.level
        `, site.ID)
		if err != nil {
			return errInternal(c, err.Error())
		}
		defer rows.Close()

		type floorSummary struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			ShortName string `json:"short_name,omitempty"`
			Level     int    `json:"level"`
			Locations int    `json:"locations"`
		}

		var floors []floorSummary
		for rows.Next() {
			var f floorSummary
			if err := rows.Scan(&f.ID, &f.Name, &f.ShortName, &f.Level, &f.Locations); err != nil {
				return errInternal(c, err.Error())
			}
			floors = append(floors, f)
		}

		c.Set("Cache-Control", "public, max-age=600")
		return c.JSON(floors)
	}
}

// LegacySearchHandler is the deprecated combined search kept for older
// clients. It answers with locations and categories in one body.
func LegacySearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		siteID := c.Query("site_id")
		if siteID == "" {
			return errBadRequest(c, "site_id query parameter is required")
		}
		query := strings.TrimSpace(c.Query("q"))
		if query == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(query) > becomap.MaxQueryLen {
			return errBadRequest(c, "query too long (max 100 characters)")
		}

		site, err := deps.Venues.GetSite(c.Context(), siteID)
		if err != nil {
			return errNotFound(c, "site not found")
		}

		locations, err := deps.Search.SearchLocations(c.Context(), site.ID, query, nil, 20)
		if err != nil {
			return errInternal(c, err.Error())
		}
		categories, err := deps.Search.SearchCategories(c.Context(), site.ID, query, 10)
		if err != nil {
			return errInternal(c, err.Error())
		}

		return c.JSON(fiber.Map{
			"query":      query,
			"locations":  locations,
			"categories": categories,
		})
	}
}
