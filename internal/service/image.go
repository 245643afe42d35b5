package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/TradeCatalog/internal/domain"
	"github.com/utafrali/TradeCatalog/internal/repository"
)

// ImageService manages the image metadata attached to products. Only an
// administrator or the owning supplier may change a product's images.
type ImageService struct {
	products  repository.ProductRepository
	images    repository.ImageRepository
	validator *CatalogValidator
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewImageService creates a new image service. metrics may be nil.
func NewImageService(products repository.ProductRepository, images repository.ImageRepository, metrics *Metrics, logger *slog.Logger) *ImageService {
	return &ImageService{
		products:  products,
		images:    images,
		validator: NewCatalogValidator(),
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Add attaches an image to product productID.
func (s *ImageService) Add(ctx context.Context, actor domain.Actor, productID string, in *domain.AddImageInput) (*domain.ProductImage, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if err := s.validator.ValidateImageChange(product, actor); err != nil {
		s.metrics.ValidationFailed(err)
		return nil, err
	}

	img := &domain.ProductImage{
		ID:        uuid.New().String(),
		ProductID: product.ID,
		URL:       strings.TrimSpace(in.URL),
		AltText:   strings.TrimSpace(in.AltText),
		IsPrimary: in.IsPrimary,
		CreatedAt: s.now(),
	}
	if in.SortOrder != nil {
		img.SortOrder = *in.SortOrder
	}

	if err := s.images.Create(ctx, img); err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}

	s.logger.InfoContext(ctx, "product image added",
		slog.String("product_id", product.ID),
		slog.String("image_id", img.ID),
		slog.Bool("primary", img.IsPrimary),
	)
	return img, nil
}

// List returns the images of product productID in display order. Images of a
// deleted product are visible to administrators only.
func (s *ImageService) List(ctx context.Context, actor domain.Actor, productID string) ([]domain.ProductImage, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product.IsDeleted() && !actor.Role.Can(domain.CapManageAny) {
		return nil, domain.ProductNotFound(productID)
	}

	images, err := s.images.ListByProduct(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return images, nil
}

// Remove deletes image imageID from product productID.
func (s *ImageService) Remove(ctx context.Context, actor domain.Actor, productID, imageID string) error {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if err := s.validator.ValidateImageChange(product, actor); err != nil {
		s.metrics.ValidationFailed(err)
		return err
	}

	if err := s.images.Delete(ctx, product.ID, imageID); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}

	s.logger.InfoContext(ctx, "product image removed",
		slog.String("product_id", product.ID),
		slog.String("image_id", imageID),
	)
	return nil
}
