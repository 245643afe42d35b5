// Package memory provides in-process repositories for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/utafrali/TradeCatalog/internal/domain"
	"github.com/utafrali/TradeCatalog/internal/repository"
	apperrors "github.com/utafrali/TradeCatalog/pkg/errors"
)

// ProductRepository implements repository.ProductRepository over a map.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

// NewProductRepository creates an empty in-memory product repository.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[string]*domain.Product)}
}

func (r *ProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, domain.ProductNotFound(id)
	}
	return p.Clone(), nil
}

// List orders matches newest first, breaking ties by id.
func (r *ProductRepository) List(_ context.Context, filter repository.SearchFilter) ([]domain.Product, int, error) {
	r.mu.RLock()
	matches := make([]domain.Product, 0)
	for _, p := range r.products {
		if filter.Matches(p) {
			matches = append(matches, *p.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})

	total := len(matches)
	start := min(max(filter.Offset(), 0), total)
	end := min(start+max(filter.PageSize, 0), total)
	return matches[start:end], total, nil
}

func (r *ProductRepository) Create(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[p.ID]; exists {
		return apperrors.AlreadyExists("product", "id", p.ID)
	}
	r.products[p.ID] = p.Clone()
	return nil
}

func (r *ProductRepository) Update(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[p.ID]
	if !ok || existing.IsDeleted() {
		return domain.ProductNotFound(p.ID)
	}
	updated := p.Clone()
	updated.SupplierID = existing.SupplierID
	updated.CreatedAt = existing.CreatedAt
	updated.Lifecycle = existing.Lifecycle
	r.products[p.ID] = updated
	return nil
}

func (r *ProductRepository) MarkDeleted(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return false, domain.ProductNotFound(id)
	}
	if p.IsDeleted() {
		return false, nil
	}
	p.Lifecycle = domain.DeletedAt(at)
	p.UpdatedAt = at
	return true, nil
}

func (r *ProductRepository) Restore(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return false, domain.ProductNotFound(id)
	}
	if !p.IsDeleted() {
		return false, nil
	}
	p.Lifecycle = domain.Active()
	p.UpdatedAt = at
	return true, nil
}
