package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/becomap/becomap-go/internal/core/domain"
)

// LocationRepo implements ports.LocationRepository with pgx.
type LocationRepo struct {
	db *DB
}

// NewLocationRepo creates a new LocationRepo.
func NewLocationRepo(db *DB) *LocationRepo {
	return &LocationRepo{db: db}
}

const locationUpsertSQL = `
	INSERT INTO locations (id, floor_id, category_id, name, description, amenity, center, tags, metadata)
	VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, ST_SetSRID(ST_MakePoint($7, $8), 4326)::geography, $9, $10)
	ON CONFLICT (id) DO UPDATE
	SET floor_id = EXCLUDED.floor_id, category_id = EXCLUDED.category_id,
	    name = EXCLUDED.name, description = EXCLUDED.description,
	    amenity = EXCLUDED.amenity, center = EXCLUDED.center,
	    tags = EXCLUDED.tags, metadata = EXCLUDED.metadata
`

// Upsert inserts or updates a single location.
func (r *LocationRepo) Upsert(ctx context.Context, l *domain.Location) error {
	_, err := r.db.Pool.Exec(ctx, locationUpsertSQL,
		l.ID, l.FloorID, l.CategoryID, l.Name, l.Description, l.Amenity,
		l.Center.Lon, l.Center.Lat, l.Tags, l.Metadata)
	return err
}

// UpsertBatch inserts many locations using pgx.Batch.
func (r *LocationRepo) UpsertBatch(ctx context.Context, locs []domain.Location) error {
	batch := &pgx.Batch{}
	for _, l := range locs {
		batch.Queue(locationUpsertSQL,
			l.ID, l.FloorID, l.CategoryID, l.Name, l.Description, l.Amenity,
			l.Center.Lon, l.Center.Lat, l.Tags, l.Metadata)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range locs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

const locationSelectSQL = `
	SELECT id, floor_id, COALESCE(category_id, ''), name,
	       COALESCE(description, ''), COALESCE(amenity, ''),
	       ST_Y(center::geometry) as lat,
	       ST_X(center::geometry) as lon,
	       tags, COALESCE(metadata, '{}'), created_at
	FROM locations
`

func scanLocation(rows pgx.Rows) (domain.Location, error) {
	var l domain.Location
	err := rows.Scan(
		&l.ID, &l.FloorID, &l.CategoryID, &l.Name,
		&l.Description, &l.Amenity,
		&l.Center.Lat, &l.Center.Lon,
		&l.Tags, &l.Metadata, &l.CreatedAt,
	)
	return l, err
}

// GetByID returns a location by id.
func (r *LocationRepo) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	var l domain.Location
	err := r.db.Pool.QueryRow(ctx, locationSelectSQL+` WHERE id = $1`, id).Scan(
		&l.ID, &l.FloorID, &l.CategoryID, &l.Name,
		&l.Description, &l.Amenity,
		&l.Center.Lat, &l.Center.Lon,
		&l.Tags, &l.Metadata, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetByIDs returns multiple locations by id, in arbitrary order.
func (r *LocationRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Location, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Pool.Query(ctx, locationSelectSQL+` WHERE id = ANY($1) ORDER BY name`, ids)
	if err != nil {
		return nil, err
	}
	return collectLocations(rows)
}

// ListByFloor returns the locations on a floor.
func (r *LocationRepo) ListByFloor(ctx context.Context, floorID string) ([]domain.Location, error) {
	rows, err := r.db.Pool.Query(ctx, locationSelectSQL+` WHERE floor_id = $1 ORDER BY name`, floorID)
	if err != nil {
		return nil, err
	}
	return collectLocations(rows)
}

// ListByCategory returns the locations of a site tagged with a category.
func (r *LocationRepo) ListByCategory(ctx context.Context, siteID, categoryID string) ([]domain.Location, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT l.id, l.floor_id, COALESCE(l.category_id, ''), l.name,
		       COALESCE(l.description, ''), COALESCE(l.amenity, ''),
		       ST_Y(l.center::geometry) as lat,
		       ST_X(l.center::geometry) as lon,
		       l.tags, COALESCE(l.metadata, '{}'), l.created_at
		FROM locations l
		JOIN floors f ON f.id = l.floor_id
		JOIN buildings b ON b.id = f.building_id
		WHERE b.site_id = $1 AND l.category_id = $2
		ORDER BY l.name
	`, siteID, categoryID)
	if err != nil {
		return nil, err
	}
	return collectLocations(rows)
}

// FindNearby returns locations within radiusMeters using PostGIS ST_DWithin.
func (r *LocationRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Location, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, floor_id, COALESCE(category_id, ''), name,
		       COALESCE(description, ''), COALESCE(amenity, ''),
		       ST_Y(center::geometry) as lat,
		       ST_X(center::geometry) as lon,
		       tags, COALESCE(metadata, '{}'), created_at,
		       ST_Distance(center, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) as distance
		FROM locations
		WHERE ST_DWithin(center, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY distance
		LIMIT $4
	`, lon, lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locs []domain.Location
	for rows.Next() {
		var l domain.Location
		var dist float64
		if err := rows.Scan(
			&l.ID, &l.FloorID, &l.CategoryID, &l.Name,
			&l.Description, &l.Amenity,
			&l.Center.Lat, &l.Center.Lon,
			&l.Tags, &l.Metadata, &l.CreatedAt,
			&dist,
		); err != nil {
			return nil, err
		}
		l.Distance = &dist
		locs = append(locs, l)
	}
	return locs, rows.Err()
}

// Search performs fuzzy + full-text search on location names within a
// site, nearest-first when a reference point is given.
func (r *LocationRepo) Search(ctx context.Context, siteID, query string, near *domain.GeoPoint, limit int) ([]domain.Location, error) {
	orderBy := "sim DESC"
	args := []any{siteID, query, limit}
	if near != nil {
		orderBy = "sim DESC, ST_Distance(l.center, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography)"
		args = append(args, near.Lon, near.Lat)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT l.id, l.floor_id, COALESCE(l.category_id, ''), l.name,
		       COALESCE(l.description, ''), COALESCE(l.amenity, ''),
		       ST_Y(l.center::geometry) as lat,
		       ST_X(l.center::geometry) as lon,
		       l.tags, COALESCE(l.metadata, '{}'), l.created_at,
		       similarity(l.name, $2) as sim
		FROM locations l
		JOIN floors f ON f.id = l.floor_id
		JOIN buildings b ON b.id = f.building_id
		WHERE b.site_id = $1
		  AND (l.name_vector @@ plainto_tsquery('simple', $2)
		       OR l.name %> $2
		       OR $2 = ANY(l.tags))
		ORDER BY `+orderBy+`
		LIMIT $3
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locs []domain.Location
	for rows.Next() {
		var l domain.Location
		var sim float64
		if err := rows.Scan(
			&l.ID, &l.FloorID, &l.CategoryID, &l.Name,
			&l.Description, &l.Amenity,
			&l.Center.Lat, &l.Center.Lon,
			&l.Tags, &l.Metadata, &l.CreatedAt,
			&sim,
		); err != nil {
			return nil, err
		}
		locs = append(locs, l)
	}
	return locs, rows.Err()
}

func collectLocations(rows pgx.Rows) ([]domain.Location, error) {
	defer rows.Close()
	var locs []domain.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locs = append(locs, l)
	}
	return locs, rows.Err()
}
