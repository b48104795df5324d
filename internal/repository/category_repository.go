package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/models"
)

type CategoryRepository struct {
	pool *pgxpool.Pool
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

const categoryColumns = `id, name, created_at, updated_at`

func scanCategory(row pgx.Row) (models.Category, error) {
	var category models.Category
	err := row.Scan(&category.ID, &category.Name, &category.CreatedAt, &category.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Category{}, ErrCategoryNotFound
	}
	return category, err
}

func (r *CategoryRepository) Create(ctx context.Context, category models.Category) (models.Category, error) {
	query := `
		INSERT INTO categories (id, name, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING ` + categoryColumns

	created, err := scanCategory(r.pool.QueryRow(ctx, query, category.ID, category.Name))
	if err != nil {
		return models.Category{}, mapWriteError(err)
	}
	return created, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (models.Category, error) {
	return scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
}

func (r *CategoryRepository) List(ctx context.Context, limit, offset int) ([]models.Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY name LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) Update(ctx context.Context, category models.Category) (models.Category, error) {
	query := `
		UPDATE categories SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + categoryColumns

	updated, err := scanCategory(r.pool.QueryRow(ctx, query, category.ID, category.Name))
	if err != nil {
		return models.Category{}, mapWriteError(err)
	}
	return updated, nil
}

// Delete fails with ErrReferenced while products still point at the category.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
