package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/models"
)

type ReviewRepository struct {
	pool *pgxpool.Pool
}

func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

type ReviewFilter struct {
	ProductID string
	Limit     int
	Offset    int
}

const reviewColumns = `id, user_id, product_id, rating, comment, created_at, updated_at`

func scanReview(row pgx.Row) (models.Review, error) {
	var review models.Review
	err := row.Scan(
		&review.ID,
		&review.UserID,
		&review.ProductID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Review{}, ErrReviewNotFound
	}
	return review, err
}

// Create stores a review. One review per user and product; a second one
// fails with ErrDuplicate.
func (r *ReviewRepository) Create(ctx context.Context, review models.Review) (models.Review, error) {
	query := `
		INSERT INTO reviews (id, user_id, product_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING ` + reviewColumns

	created, err := scanReview(r.pool.QueryRow(ctx, query,
		review.ID,
		review.UserID,
		review.ProductID,
		review.Rating,
		review.Comment,
	))
	if err != nil {
		err = mapWriteError(err)
		if errors.Is(err, ErrReferenced) {
			return models.Review{}, ErrProductNotFound
		}
		return models.Review{}, err
	}
	return created, nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id string) (models.Review, error) {
	return scanReview(r.pool.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
}

func (r *ReviewRepository) List(ctx context.Context, filter ReviewFilter) ([]models.Review, error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE ($1 = '' OR product_id = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, filter.ProductID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]models.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

func (r *ReviewRepository) Update(ctx context.Context, review models.Review) (models.Review, error) {
	query := `
		UPDATE reviews SET rating = $2, comment = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + reviewColumns

	updated, err := scanReview(r.pool.QueryRow(ctx, query, review.ID, review.Rating, review.Comment))
	if err != nil {
		return models.Review{}, mapWriteError(err)
	}
	return updated, nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrReviewNotFound
	}
	return nil
}
