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
	ErrCategoryNotFound = apperr.NotFound("Category not found")
	ErrCategoryExists   = apperr.Conflict("Category already exists")
	ErrCategoryInUse    = apperr.Conflict("Category still has products")
	ErrProductNotFound  = apperr.NotFound("Product not found")
	ErrProductInUse     = apperr.Conflict("Product is part of an order")

	errCategoryNameRequired = apperr.Validation("Category name is required")
	errProductNameRequired  = apperr.Validation("Product name is required")
	errNegativePrice        = apperr.Validation("Price must not be negative")
	errNegativeStock        = apperr.Validation("Stock must not be negative")
	errCategoryIDRequired   = apperr.Validation("Category ID is required")
)

type CategoryStore interface {
	Create(ctx context.Context, category models.Category) (models.Category, error)
	GetByID(ctx context.Context, id string) (models.Category, error)
	List(ctx context.Context, limit, offset int) ([]models.Category, error)
	Update(ctx context.Context, category models.Category) (models.Category, error)
	Delete(ctx context.Context, id string) error
}

type ProductStore interface {
	Create(ctx context.Context, product models.Product) (models.Product, error)
	GetByID(ctx context.Context, id string) (models.Product, error)
	List(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error)
	Update(ctx context.Context, product models.Product) (models.Product, error)
	Delete(ctx context.Context, id string) error
	AddImage(ctx context.Context, image models.ProductImage) (models.ProductImage, error)
	DeleteImage(ctx context.Context, productID, imageID string) (models.ProductImage, error)
}

type CatalogService struct {
	categories CategoryStore
	products   ProductStore
	log        zerolog.Logger
}

func NewCatalogService(categories CategoryStore, products ProductStore, log zerolog.Logger) *CatalogService {
	return &CatalogService{categories: categories, products: products, log: log}
}

type CreateProductInput struct {
	Name        string
	Description string
	PriceCents  int64
	Stock       int
	CategoryID  string
}

type UpdateProductInput struct {
	Name        *string
	Description *string
	PriceCents  *int64
	Stock       *int
	CategoryID  *string
}

type ProductQuery struct {
	CategoryID string
	Page       Page
}

func (s *CatalogService) ListCategories(ctx context.Context, page Page) ([]models.Category, error) {
	limit, offset := page.Bounds()
	categories, err := s.categories.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id string) (models.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return models.Category{}, notFound(err, repository.ErrCategoryNotFound, ErrCategoryNotFound, "get category")
	}
	return category, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, actor Actor, name string) (models.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Category{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Category{}, errCategoryNameRequired
	}

	category, err := s.categories.Create(ctx, models.Category{ID: ids.New(), Name: name})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.Category{}, ErrCategoryExists
		}
		return models.Category{}, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, actor Actor, id, name string) (models.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Category{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Category{}, errCategoryNameRequired
	}

	category, err := s.categories.Update(ctx, models.Category{ID: id, Name: name})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.Category{}, ErrCategoryExists
		}
		return models.Category{}, notFound(err, repository.ErrCategoryNotFound, ErrCategoryNotFound, "update category")
	}
	return category, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, actor Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return ErrCategoryInUse
		}
		return notFound(err, repository.ErrCategoryNotFound, ErrCategoryNotFound, "delete category")
	}
	return nil
}

func (s *CatalogService) ListProducts(ctx context.Context, query ProductQuery) ([]models.Product, error) {
	limit, offset := query.Page.Bounds()
	products, err := s.products.List(ctx, repository.ProductFilter{
		CategoryID: query.CategoryID,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return models.Product{}, notFound(err, repository.ErrProductNotFound, ErrProductNotFound, "get product")
	}
	return product, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, actor Actor, input CreateProductInput) (models.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Product{}, err
	}
	product := models.Product{
		ID:          ids.New(),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		PriceCents:  input.PriceCents,
		Stock:       input.Stock,
		CategoryID:  strings.TrimSpace(input.CategoryID),
	}
	if err := s.checkProduct(ctx, product); err != nil {
		return models.Product{}, err
	}

	created, err := s.products.Create(ctx, product)
	if err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return models.Product{}, ErrCategoryNotFound
		}
		return models.Product{}, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, actor Actor, id string, input UpdateProductInput) (models.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Product{}, err
	}
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return models.Product{}, notFound(err, repository.ErrProductNotFound, ErrProductNotFound, "get product")
	}

	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.PriceCents != nil {
		product.PriceCents = *input.PriceCents
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.CategoryID != nil {
		product.CategoryID = strings.TrimSpace(*input.CategoryID)
	}
	if err := s.checkProduct(ctx, product); err != nil {
		return models.Product{}, err
	}

	updated, err := s.products.Update(ctx, product)
	if err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return models.Product{}, ErrCategoryNotFound
		}
		return models.Product{}, notFound(err, repository.ErrProductNotFound, ErrProductNotFound, "update product")
	}
	updated.Images = product.Images
	return updated, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, actor Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return ErrProductInUse
		}
		return notFound(err, repository.ErrProductNotFound, ErrProductNotFound, "delete product")
	}
	return nil
}

func (s *CatalogService) checkProduct(ctx context.Context, product models.Product) error {
	switch {
	case product.Name == "":
		return errProductNameRequired
	case product.PriceCents < 0:
		return errNegativePrice
	case product.Stock < 0:
		return errNegativeStock
	case product.CategoryID == "":
		return errCategoryIDRequired
	}
	if _, err := s.categories.GetByID(ctx, product.CategoryID); err != nil {
		return notFound(err, repository.ErrCategoryNotFound, ErrCategoryNotFound, "get category")
	}
	return nil
}
