package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/models"
)

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

type ProductFilter struct {
	CategoryID string
	Limit      int
	Offset     int
}

const productColumns = `id, name, description, price_cents, stock, category_id, created_at, updated_at`

func scanProduct(row pgx.Row) (models.Product, error) {
	var product models.Product
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.PriceCents,
		&product.Stock,
		&product.CategoryID,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Product{}, ErrProductNotFound
	}
	return product, err
}

func (r *ProductRepository) Create(ctx context.Context, product models.Product) (models.Product, error) {
	query := `
		INSERT INTO products (id, name, description, price_cents, stock, category_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING ` + productColumns

	created, err := scanProduct(r.pool.QueryRow(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.PriceCents,
		product.Stock,
		product.CategoryID,
	))
	if err != nil {
		return models.Product{}, mapWriteError(err)
	}
	created.Images = []models.ProductImage{}
	return created, nil
}

// GetByID loads the product together with its images in display order.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (models.Product, error) {
	product, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return models.Product{}, err
	}

	images, err := r.ListImages(ctx, id)
	if err != nil {
		return models.Product{}, err
	}
	product.Images = images
	return product, nil
}

func (r *ProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE ($1 = '' OR category_id = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, filter.CategoryID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (r *ProductRepository) Update(ctx context.Context, product models.Product) (models.Product, error) {
	query := `
		UPDATE products
		SET name = $2,
		    description = $3,
		    price_cents = $4,
		    stock = $5,
		    category_id = $6,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + productColumns

	updated, err := scanProduct(r.pool.QueryRow(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.PriceCents,
		product.Stock,
		product.CategoryID,
	))
	if err != nil {
		return models.Product{}, mapWriteError(err)
	}
	return updated, nil
}

// Delete fails with ErrReferenced when the product appears in an order.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
