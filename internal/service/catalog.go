package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/TradeCatalog/internal/domain"
	"github.com/utafrali/TradeCatalog/internal/pricing"
	"github.com/utafrali/TradeCatalog/internal/repository"
	"github.com/utafrali/TradeCatalog/internal/supplier"
	apperrors "github.com/utafrali/TradeCatalog/pkg/errors"
)

// CatalogService implements the business logic for product operations. Every
// read is priced for the caller; every write is validated before it is
// persisted.
type CatalogService struct {
	products  repository.ProductRepository
	suppliers supplier.Directory
	validator *CatalogValidator
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewCatalogService creates a new catalog service. metrics may be nil.
func NewCatalogService(products repository.ProductRepository, suppliers supplier.Directory, metrics *Metrics, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		products:  products,
		suppliers: suppliers,
		validator: NewCatalogValidator(),
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListResult is one page of priced products.
type ListResult struct {
	Items    []pricing.ProductView
	Total    int
	Page     int
	PageSize int
}

// Create validates in and stores a new active product owned by the resolved
// supplier.
func (s *CatalogService) Create(ctx context.Context, actor domain.Actor, in *domain.CreateProductInput) (*pricing.ProductView, error) {
	product, err := s.validator.ValidateCreate(in, actor)
	if err != nil {
		return nil, s.rejected(err)
	}
	if err := s.checkSupplier(ctx, product.SupplierID); err != nil {
		return nil, err
	}

	now := s.now()
	product.ID = uuid.New().String()
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("supplier_id", product.SupplierID),
	)
	return s.view(product, actor.Role, 1), nil
}

// Get returns product id priced for actor at quantity. Deleted products are
// visible to administrators only.
func (s *CatalogService) Get(ctx context.Context, actor domain.Actor, id string, quantity int) (*pricing.ProductView, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product.IsDeleted() && !actor.Role.Can(domain.CapManageAny) {
		return nil, domain.ProductNotFound(id)
	}
	return s.view(product, actor.Role, quantity), nil
}

// Update applies a partial update to product id.
func (s *CatalogService) Update(ctx context.Context, actor domain.Actor, id string, patch *domain.UpdateProductInput) (*pricing.ProductView, error) {
	existing, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	product, err := s.validator.ValidateUpdate(existing, patch, actor)
	if err != nil {
		return nil, s.rejected(err)
	}
	if err := s.checkSupplier(ctx, product.SupplierID); err != nil {
		return nil, err
	}

	product.UpdatedAt = s.now()
	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", id))
	return s.view(product, actor.Role, 1), nil
}

// SoftDelete marks product id deleted. Deleting a deleted product succeeds
// without writing.
func (s *CatalogService) SoftDelete(ctx context.Context, actor domain.Actor, id string) error {
	existing, err := s.products.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}

	noop, err := s.validator.ValidateDelete(existing, actor)
	if err != nil {
		return s.rejected(err)
	}
	if noop {
		return nil
	}

	changed, err := s.products.MarkDeleted(ctx, id, s.now())
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if changed {
		s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	}
	return nil
}

// Restore reactivates a deleted product. Restoring an active product succeeds
// without writing.
func (s *CatalogService) Restore(ctx context.Context, actor domain.Actor, id string) (*pricing.ProductView, error) {
	existing, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	noop, err := s.validator.ValidateRestore(existing, actor)
	if err != nil {
		return nil, s.rejected(err)
	}
	if !noop {
		if _, err := s.products.Restore(ctx, id, s.now()); err != nil {
			return nil, fmt.Errorf("restore product: %w", err)
		}
		s.logger.InfoContext(ctx, "product restored", slog.String("product_id", id))

		if existing, err = s.products.GetByID(ctx, id); err != nil {
			return nil, fmt.Errorf("get restored product: %w", err)
		}
	}
	return s.view(existing, actor.Role, 1), nil
}

// List returns active products matching filter. The text query is ignored.
func (s *CatalogService) List(ctx context.Context, actor domain.Actor, filter repository.SearchFilter) (*ListResult, error) {
	filter.Query = ""
	return s.list(ctx, actor, filter)
}

// Search is List with a mandatory text query.
func (s *CatalogService) Search(ctx context.Context, actor domain.Actor, filter repository.SearchFilter) (*ListResult, error) {
	filter = filter.Normalize()
	if filter.Query == "" {
		return nil, apperrors.InvalidInput("search query q is required")
	}
	return s.list(ctx, actor, filter)
}

func (s *CatalogService) list(ctx context.Context, actor domain.Actor, filter repository.SearchFilter) (*ListResult, error) {
	filter.Role = actor.Role
	filter = filter.Normalize()

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	items := make([]pricing.ProductView, 0, len(products))
	for i := range products {
		items = append(items, *s.view(&products[i], actor.Role, filter.Quantity))
	}
	return &ListResult{Items: items, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

// checkSupplier resolves id through the directory and rejects anything but
// an active supplier. Directory outages are returned as they are.
func (s *CatalogService) checkSupplier(ctx context.Context, id string) error {
	sup, err := s.suppliers.Lookup(ctx, id)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.WarnContext(ctx, "supplier lookup failed",
			slog.String("supplier_id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("lookup supplier: %w", err)
	}
	if err := s.validator.ValidateSupplier(sup); err != nil {
		return s.rejected(err)
	}
	return nil
}

func (s *CatalogService) rejected(err error) error {
	s.metrics.ValidationFailed(err)
	return err
}

func (s *CatalogService) view(p *domain.Product, role domain.Role, quantity int) *pricing.ProductView {
	v := pricing.View(p, role, quantity)
	s.metrics.PriceResolved(role, v.PriceTier)
	return &v
}
