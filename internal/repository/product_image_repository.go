package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"storefront/internal/models"
)

const imageColumns = `id, product_id, bucket, object_key, url, format, size_bytes, checksum, position, created_at`

func scanImage(row pgx.Row) (models.ProductImage, error) {
	var image models.ProductImage
	err := row.Scan(
		&image.ID,
		&image.ProductID,
		&image.Bucket,
		&image.ObjectKey,
		&image.URL,
		&image.Format,
		&image.SizeBytes,
		&image.Checksum,
		&image.Position,
		&image.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ProductImage{}, ErrImageNotFound
	}
	return image, err
}

// AddImage appends image after the product's existing images.
func (r *ProductRepository) AddImage(ctx context.Context, image models.ProductImage) (models.ProductImage, error) {
	query := `
		INSERT INTO product_images (
			id, product_id, bucket, object_key, url, format, size_bytes, checksum, position, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM product_images WHERE product_id = $2),
			NOW()
		)
		RETURNING ` + imageColumns

	created, err := scanImage(r.pool.QueryRow(ctx, query,
		image.ID,
		image.ProductID,
		image.Bucket,
		image.ObjectKey,
		image.URL,
		image.Format,
		image.SizeBytes,
		image.Checksum,
	))
	if err != nil {
		err = mapWriteError(err)
		if errors.Is(err, ErrReferenced) {
			return models.ProductImage{}, ErrProductNotFound
		}
		return models.ProductImage{}, err
	}
	return created, nil
}

func (r *ProductRepository) ListImages(ctx context.Context, productID string) ([]models.ProductImage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+imageColumns+` FROM product_images WHERE product_id = $1 ORDER BY position, created_at`,
		productID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := make([]models.ProductImage, 0)
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, rows.Err()
}

// DeleteImage removes the row and returns it so the caller can drop the
// stored object.
func (r *ProductRepository) DeleteImage(ctx context.Context, productID, imageID string) (models.ProductImage, error) {
	query := `DELETE FROM product_images WHERE id = $1 AND product_id = $2 RETURNING ` + imageColumns
	return scanImage(r.pool.QueryRow(ctx, query, imageID, productID))
}
