package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/becomap/becomap-go/internal/core/domain"
)

// ConnectorRepo implements ports.ConnectorRepository with pgx.
type ConnectorRepo struct {
	db *DB
}

// NewConnectorRepo creates a new ConnectorRepo.
func NewConnectorRepo(db *DB) *ConnectorRepo {
	return &ConnectorRepo{db: db}
}

// UpsertBatch inserts or updates connectors using pgx.Batch.
func (r *ConnectorRepo) UpsertBatch(ctx context.Context, conns []domain.Connector) error {
	batch := &pgx.Batch{}
	for _, c := range conns {
		batch.Queue(`
			INSERT INTO connectors (id, site_id, kind, name, from_floor_id, to_floor_id, point, traverse_sec)
			VALUES ($1, $2, $3, $4, $5, $6, ST_SetSRID(ST_MakePoint($7, $8), 4326)::geography, $9)
			ON CONFLICT (id) DO UPDATE
			SET site_id = EXCLUDED.site_id, kind = EXCLUDED.kind,
			    name = EXCLUDED.name, from_floor_id = EXCLUDED.from_floor_id,
			    to_floor_id = EXCLUDED.to_floor_id, point = EXCLUDED.point,
			    traverse_sec = EXCLUDED.traverse_sec
		`, c.ID, c.SiteID, string(c.Kind), c.Name, c.FromFloorID, c.ToFloorID,
			c.Point.Lon, c.Point.Lat, c.TraverseSec)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range conns {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// ListBySite returns the connectors of a site.
func (r *ConnectorRepo) ListBySite(ctx context.Context, siteID string) ([]domain.Connector, error) {
	rows, err := r.db.Pool.Query(ctx, `
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
	defer rows.Close()

	var conns []domain.Connector
	for rows.Next() {
		var c domain.Connector
		if err := rows.Scan(
			&c.ID, &c.SiteID, &c.Kind, &c.Name, &c.FromFloorID, &c.ToFloorID,
			&c.Point.Lat, &c.Point.Lon,
			&c.TraverseSec, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}
