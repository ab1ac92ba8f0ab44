package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/becomap/becomap-go/internal/core/domain"
)

// SiteRepo implements ports.SiteRepository with pgx.
type SiteRepo struct {
	db *DB
}

// NewSiteRepo creates a new SiteRepo.
func NewSiteRepo(db *DB) *SiteRepo {
	return &SiteRepo{db: db}
}

// Upsert writes the site row and its buildings and floors. The version
// guard rejects writes that would move a site backwards, so concurrent
// publishes cannot clobber a newer bundle.
func (r *SiteRepo) Upsert(ctx context.Context, site *domain.Site) error {
	tag, err := r.db.Pool.Exec(ctx, `
		INSERT INTO sites (id, slug, name, description, address, center, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, ST_SetSRID(ST_MakePoint($6, $7), 4326)::geography, $8, now())
		ON CONFLICT (id) DO UPDATE
		SET slug = EXCLUDED.slug, name = EXCLUDED.name,
		    description = EXCLUDED.description, address = EXCLUDED.address,
		    center = EXCLUDED.center, version = EXCLUDED.version, updated_at = now()
		WHERE sites.version <= EXCLUDED.version
	`, site.ID, site.Slug, site.Name, site.Description, site.Address,
		site.Center.Lon, site.Center.Lat, site.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("site %s: version %d is stale", site.ID, site.Version)
	}

	batch := &pgx.Batch{}
	for _, b := range site.Buildings {
		var outline []byte
		if b.Outline != nil {
			outline, _ = json.Marshal(b.Outline)
		}
		batch.Queue(`
			INSERT INTO buildings (id, site_id, name, outline)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET site_id = EXCLUDED.site_id, name = EXCLUDED.name, outline = EXCLUDED.outline
		`, b.ID, site.ID, b.Name, outline)
		for _, f := range b.Floors {
			batch.Queue(`
				INSERT INTO floors (id, building_id, name, short_name, level, elevation)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO UPDATE
				SET building_id = EXCLUDED.building_id, name = EXCLUDED.name,
				    short_name = EXCLUDED.short_name, level = EXCLUDED.level,
				    elevation = EXCLUDED.elevation
			`, f.ID, b.ID, f.Name, f.ShortName, f.Level, f.Elevation)
		}
	}
	if batch.Len() == 0 {
		return nil
	}

	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// GetByID returns a site with its buildings, floors and categories.
func (r *SiteRepo) GetByID(ctx context.Context, id string) (*domain.Site, error) {
	return r.getSite(ctx, "id = $1", id)
}

// GetBySlug returns a site by its URL slug.
func (r *SiteRepo) GetBySlug(ctx context.Context, slug string) (*domain.Site, error) {
	return r.getSite(ctx, "slug = $1", slug)
}

func (r *SiteRepo) getSite(ctx context.Context, where string, arg any) (*domain.Site, error) {
	var s domain.Site
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, slug, name, COALESCE(description, ''), COALESCE(address, ''),
		       ST_Y(center::geometry) as lat,
		       ST_X(center::geometry) as lon,
		       version, created_at, updated_at
		FROM sites WHERE `+where,
		arg).Scan(
		&s.ID, &s.Slug, &s.Name, &s.Description, &s.Address,
		&s.Center.Lat, &s.Center.Lon,
		&s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := r.loadBuildings(ctx, &s); err != nil {
		return nil, err
	}
	if err := r.loadCategories(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SiteRepo) loadBuildings(ctx context.Context, s *domain.Site) error {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, site_id, name, outline, created_at
		FROM buildings WHERE site_id = $1
		ORDER BY name
	`, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var b domain.Building
		var outline []byte
		if err := rows.Scan(&b.ID, &b.SiteID, &b.Name, &outline, &b.CreatedAt); err != nil {
			return err
		}
		if len(outline) > 0 {
			var line domain.GeoLine
			if err := json.Unmarshal(outline, &line); err == nil {
				b.Outline = &line
			}
		}
		s.Buildings = append(s.Buildings, b)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range s.Buildings {
		if err := r.loadFloors(ctx, &s.Buildings[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *SiteRepo) loadFloors(ctx context.Context, b *domain.Building) error {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, building_id, name, COALESCE(short_name, ''), level, elevation, created_at
		FROM floors WHERE building_id = $1
		ORDER BY level
	`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f domain.Floor
		if err := rows.Scan(&f.ID, &f.BuildingID, &f.Name, &f.ShortName, &f.Level, &f.Elevation, &f.CreatedAt); err != nil {
			return err
		}
		b.Floors = append(b.Floors, f)
	}
	return rows.Err()
}

func (r *SiteRepo) loadCategories(ctx context.Context, s *domain.Site) error {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, site_id, name, COALESCE(icon_name, ''), created_at
		FROM categories WHERE site_id = $1
		ORDER BY name
	`, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.SiteID, &c.Name, &c.IconName, &c.CreatedAt); err != nil {
			return err
		}
		s.Categories = append(s.Categories, c)
	}
	return rows.Err()
}

// List returns site summaries without buildings or categories.
func (r *SiteRepo) List(ctx context.Context) ([]domain.Site, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, slug, name, COALESCE(description, ''), COALESCE(address, ''),
		       ST_Y(center::geometry) as lat,
		       ST_X(center::geometry) as lon,
		       version, created_at, updated_at
		FROM sites
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []domain.Site
	for rows.Next() {
		var s domain.Site
		if err := rows.Scan(
			&s.ID, &s.Slug, &s.Name, &s.Description, &s.Address,
			&s.Center.Lat, &s.Center.Lon,
			&s.Version, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

// GetBundle loads the full aggregate: the site plus every location and
// connector under it.
func (r *SiteRepo) GetBundle(ctx context.Context, siteID string) (*domain.Bundle, error) {
	site, err := r.GetByID(ctx, siteID)
	if err != nil {
		return nil, err
	}
	bundle := &domain.Bundle{Site: *site}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT l.id, l.floor_id, COALESCE(l.category_id, ''), l.name,
		       COALESCE(l.description, ''), COALESCE(l.amenity, ''),
		       ST_Y(l.center::geometry) as lat,
		       ST_X(l.center::geometry) as lon,
		       l.tags, COALESCE(l.metadata, '{}'), l.created_at
		FROM locations l
		JOIN floors f ON f.id = l.floor_id
		JOIN buildings b ON b.id = f.building_id
		WHERE b.site_id = $1
		ORDER BY l.name
	`, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.Location
		if err := rows.Scan(
			&l.ID, &l.FloorID, &l.CategoryID, &l.Name,
			&l.Description, &l.Amenity,
			&l.Center.Lat, &l.Center.Lon,
			&l.Tags, &l.Metadata, &l.CreatedAt,
		); err != nil {
			return nil, err
		}
		bundle.Locations = append(bundle.Locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	conns, err := r.db.Pool.Query(ctx, `
		SELECT id, site_id, kind, COALESCE(name, ''), from_floor_id, to_floor_id,
		       ST_Y(point::geometry) as lat,
		       ST_X(point::geometry) as lon,
		       traverse_sec, created_at
		FROM connectors WHERE site_id = $1
		ORDER BY id
	`, siteID)
	if err != nil {
		return nil, err
	}
	defer conns.Close()

	for conns.Next() {
		var c domain.Connector
		if err := conns.Scan(
			&c.ID, &c.SiteID, &c.Kind, &c.Name, &c.FromFloorID, &c.ToFloorID,
			&c.Point.Lat, &c.Point.Lon,
			&c.TraverseSec, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		bundle.Connectors = append(bundle.Connectors, c)
	}
	return bundle, conns.Err()
}
