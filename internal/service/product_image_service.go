package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/rs/zerolog"

	"storefront/internal/apperr"
	"storefront/internal/ids"
	"storefront/internal/media"
	"storefront/internal/models"
	"storefront/internal/repository"
)

var (
	ErrImageNotFound = apperr.NotFound("Image not found")

	errEmptyFile         = apperr.Validation("File is empty")
	errFileTooLarge      = apperr.Validation("File is too large")
	errUnsupportedFormat = apperr.Validation("Unsupported image format")
	errTypeMismatch      = apperr.Validation("Declared content type does not match file contents")
)

type ObjectStore interface {
	Bucket() string
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error)
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
}

type ProductImageService struct {
	products ProductStore
	store    ObjectStore
	maxBytes int64
	log      zerolog.Logger
}

func NewProductImageService(products ProductStore, store ObjectStore, maxBytes int64, log zerolog.Logger) *ProductImageService {
	return &ProductImageService{
		products: products,
		store:    store,
		maxBytes: maxBytes,
		log:      log,
	}
}

type UploadImageInput struct {
	ProductID    string
	File         io.Reader
	DeclaredType string
}

// Upload stores an image for a product. The format is taken from the file
// contents; SVG documents are sanitized before they are stored.
func (s *ProductImageService) Upload(ctx context.Context, actor Actor, input UploadImageInput) (models.ProductImage, error) {
	if err := requireAdmin(actor); err != nil {
		return models.ProductImage{}, err
	}
	if _, err := s.products.GetByID(ctx, input.ProductID); err != nil {
		return models.ProductImage{}, notFound(err, repository.ErrProductNotFound, ErrProductNotFound, "get product")
	}

	data, err := io.ReadAll(io.LimitReader(input.File, s.maxBytes+1))
	if err != nil {
		return models.ProductImage{}, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return models.ProductImage{}, errEmptyFile
	}
	if int64(len(data)) > s.maxBytes {
		return models.ProductImage{}, errFileTooLarge
	}

	kind, err := media.Detect(data)
	if err != nil {
		return models.ProductImage{}, errUnsupportedFormat
	}
	if input.DeclaredType != "" && input.DeclaredType != "application/octet-stream" && input.DeclaredType != kind.MIME {
		return models.ProductImage{}, errTypeMismatch
	}
	if kind.Format == media.FormatSVG {
		if data, err = media.SanitizeSVG(data); err != nil {
			return models.ProductImage{}, errUnsupportedFormat
		}
	}

	imageID := ids.New()
	objectKey := path.Join("products", input.ProductID, imageID+"."+kind.Extension())

	size, err := s.store.Put(ctx, objectKey, bytes.NewReader(data), int64(len(data)), kind.MIME)
	if err != nil {
		return models.ProductImage{}, fmt.Errorf("store image: %w", err)
	}

	sum := sha256.Sum256(data)
	image, err := s.products.AddImage(ctx, models.ProductImage{
		ID:        imageID,
		ProductID: input.ProductID,
		Bucket:    s.store.Bucket(),
		ObjectKey: objectKey,
		URL:       s.store.PublicURL(objectKey),
		Format:    string(kind.Format),
		SizeBytes: size,
		Checksum:  sum[:],
	})
	if err != nil {
		if rmErr := s.store.Remove(ctx, objectKey); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("object_key", objectKey).Msg("remove orphaned object failed")
		}
		if errors.Is(err, repository.ErrProductNotFound) {
			return models.ProductImage{}, ErrProductNotFound
		}
		return models.ProductImage{}, fmt.Errorf("save image metadata: %w", err)
	}
	return image, nil
}

func (s *ProductImageService) Delete(ctx context.Context, actor Actor, productID, imageID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	image, err := s.products.DeleteImage(ctx, productID, imageID)
	if err != nil {
		return notFound(err, repository.ErrImageNotFound, ErrImageNotFound, "delete image")
	}
	if err := s.store.Remove(ctx, image.ObjectKey); err != nil {
		s.log.Warn().Err(err).Str("object_key", image.ObjectKey).Msg("remove image object failed")
	}
	return nil
}
