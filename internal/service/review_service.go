package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"storefront/internal/apperr"
	"storefront/internal/ids"
	"storefront/internal/models"
	"storefront/internal/repository"
)

var (
	ErrReviewNotFound = apperr.NotFound("Review not found")
	ErrReviewExists   = apperr.Conflict("Product already reviewed")

	errInvalidRating = apperr.Validation("Rating must be between 1 and 5")
)

const (
	minRating = 1
	maxRating = 5
)

type ReviewStore interface {
	Create(ctx context.Context, review models.Review) (models.Review, error)
	GetByID(ctx context.Context, id string) (models.Review, error)
	List(ctx context.Context, filter repository.ReviewFilter) ([]models.Review, error)
	Update(ctx context.Context, review models.Review) (models.Review, error)
	Delete(ctx context.Context, id string) error
}

type ReviewService struct {
	reviews ReviewStore
	log     zerolog.Logger
}

func NewReviewService(reviews ReviewStore, log zerolog.Logger) *ReviewService {
	return &ReviewService{reviews: reviews, log: log}
}

type CreateReviewInput struct {
	ProductID string
	Rating    int
	Comment   *string
}

type UpdateReviewInput struct {
	Rating  *int
	Comment *string
}

type ReviewQuery struct {
	ProductID string
	Page      Page
}

func validRating(rating int) bool {
	return rating >= minRating && rating <= maxRating
}

func trimComment(comment *string) *string {
	if comment == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*comment)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (s *ReviewService) List(ctx context.Context, query ReviewQuery) ([]models.Review, error) {
	limit, offset := query.Page.Bounds()
	reviews, err := s.reviews.List(ctx, repository.ReviewFilter{
		ProductID: query.ProductID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

func (s *ReviewService) Get(ctx context.Context, id string) (models.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return models.Review{}, notFound(err, repository.ErrReviewNotFound, ErrReviewNotFound, "get review")
	}
	return review, nil
}

func (s *ReviewService) Create(ctx context.Context, actor Actor, input CreateReviewInput) (models.Review, error) {
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" {
		return models.Review{}, errProductIDRequired
	}
	if !validRating(input.Rating) {
		return models.Review{}, errInvalidRating
	}

	review, err := s.reviews.Create(ctx, models.Review{
		ID:        ids.New(),
		UserID:    actor.UserID,
		ProductID: productID,
		Rating:    input.Rating,
		Comment:   trimComment(input.Comment),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return models.Review{}, ErrReviewExists
		case errors.Is(err, repository.ErrProductNotFound):
			return models.Review{}, ErrProductNotFound
		}
		return models.Review{}, fmt.Errorf("create review: %w", err)
	}
	return review, nil
}

func (s *ReviewService) Update(ctx context.Context, actor Actor, id string, input UpdateReviewInput) (models.Review, error) {
	review, err := s.Get(ctx, id)
	if err != nil {
		return models.Review{}, err
	}
	if !actor.Owns(review.UserID) {
		return models.Review{}, ErrForbidden
	}

	if input.Rating != nil {
		if !validRating(*input.Rating) {
			return models.Review{}, errInvalidRating
		}
		review.Rating = *input.Rating
	}
	if input.Comment != nil {
		review.Comment = trimComment(input.Comment)
	}

	updated, err := s.reviews.Update(ctx, review)
	if err != nil {
		return models.Review{}, notFound(err, repository.ErrReviewNotFound, ErrReviewNotFound, "update review")
	}
	return updated, nil
}

func (s *ReviewService) Delete(ctx context.Context, actor Actor, id string) error {
	review, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.Owns(review.UserID) {
		return ErrForbidden
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		return notFound(err, repository.ErrReviewNotFound, ErrReviewNotFound, "delete review")
	}
	return nil
}
