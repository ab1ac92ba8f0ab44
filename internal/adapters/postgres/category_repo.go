package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/becomap/becomap-go/internal/core/domain"
)

// CategoryRepo implements ports.CategoryRepository with pgx.
type CategoryRepo struct {
	db *DB
}

// NewCategoryRepo creates a new CategoryRepo.
func NewCategoryRepo(db *DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

// UpsertBatch inserts or updates categories using pgx.Batch.
func (r *CategoryRepo) UpsertBatch(ctx context.Context, cats []domain.Category) error {
	batch := &pgx.Batch{}
	for _, c := range cats {
		batch.Queue(`
			INSERT INTO categories (id, site_id, name, icon_name)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET site_id = EXCLUDED.site_id, name = EXCLUDED.name,
			    icon_name = EXCLUDED.icon_name
		`, c.ID, c.SiteID, c.Name, c.IconName)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range cats {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// GetByID returns a category by id.
func (r *CategoryRepo) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, site_id, name, COALESCE(icon_name, ''), created_at
		FROM categories WHERE id = $1
	`, id).Scan(&c.ID, &c.SiteID, &c.Name, &c.IconName, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListBySite returns the category taxonomy of a site.
func (r *CategoryRepo) ListBySite(ctx context.Context, siteID string) ([]domain.Category, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, site_id, name, COALESCE(icon_name, ''), created_at
		FROM categories WHERE site_id = $1
		ORDER BY name
	`, siteID)
	if err != nil {
		return nil, err
	}
	return collectCategories(rows)
}

// Search finds categories of a site by fuzzy name match.
func (r *CategoryRepo) Search(ctx context.Context, siteID, query string, limit int) ([]domain.Category, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, site_id, name, COALESCE(icon_name, ''), created_at
		FROM categories
		WHERE site_id = $1 AND (name ILIKE '%' || $2 || '%' OR name %> $2)
		ORDER BY similarity(name, $2) DESC
		LIMIT $3
	`, siteID, query, limit)
	if err != nil {
		return nil, err
	}
	return collectCategories(rows)
}

func collectCategories(rows pgx.Rows) ([]domain.Category, error) {
	defer rows.Close()
	var cats []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.SiteID, &c.Name, &c.IconName, &c.CreatedAt); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}
