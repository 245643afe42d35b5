package repository

import (
	"context"
	"time"

	"github.com/utafrali/TradeCatalog/internal/domain"
)

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// GetByID retrieves a product, deleted or not. A missing product is
	// reported as domain.ProductNotFound.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// List returns active products matching filter along with the total count.
	List(ctx context.Context, filter SearchFilter) ([]domain.Product, int, error)

	// Create inserts a new product.
	Create(ctx context.Context, product *domain.Product) error

	// Update overwrites the mutable fields of an active product.
	Update(ctx context.Context, product *domain.Product) error

	// MarkDeleted soft-deletes an active product. It reports whether a row
	// changed; a product that is already deleted is left untouched.
	MarkDeleted(ctx context.Context, id string, at time.Time) (bool, error)

	// Restore reactivates a deleted product and reports whether a row changed.
	Restore(ctx context.Context, id string, at time.Time) (bool, error)
}

// CategoryRepository defines read access to categories.
type CategoryRepository interface {
	// GetByID retrieves an active category.
	GetByID(ctx context.Context, id string) (*domain.Category, error)

	// ListActive returns all active categories ordered by English name.
	ListActive(ctx context.Context) ([]domain.Category, error)
}

// ImageRepository defines persistence for product images.
type ImageRepository interface {
	// Create inserts an image. A primary image demotes the product's other
	// images in the same write.
	Create(ctx context.Context, image *domain.ProductImage) error

	// ListByProduct returns a product's images ordered by sort order, then
	// creation time.
	ListByProduct(ctx context.Context, productID string) ([]domain.ProductImage, error)

	// Delete removes an image of productID. An image that does not exist or
	// belongs to another product is reported as not found.
	Delete(ctx context.Context, productID, imageID string) error
}
