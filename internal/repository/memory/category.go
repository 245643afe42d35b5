package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/utafrali/TradeCatalog/internal/domain"
	apperrors "github.com/utafrali/TradeCatalog/pkg/errors"
)

// CategoryRepository implements repository.CategoryRepository over a map.
type CategoryRepository struct {
	mu         sync.RWMutex
	categories map[string]domain.Category
}

// NewCategoryRepository creates a repository holding categories.
func NewCategoryRepository(categories ...domain.Category) *CategoryRepository {
	r := &CategoryRepository{categories: make(map[string]domain.Category, len(categories))}
	for _, c := range categories {
		r.categories[c.ID] = c
	}
	return r
}

func (r *CategoryRepository) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.categories[id]
	if !ok || !c.IsActive {
		return nil, apperrors.NotFound("category", id)
	}
	return &c, nil
}

func (r *CategoryRepository) ListActive(_ context.Context) ([]domain.Category, error) {
	r.mu.RLock()
	out := make([]domain.Category, 0, len(r.categories))
	for _, c := range r.categories {
		if c.IsActive {
			out = append(out, c)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].NameEn < out[j].NameEn })
	return out, nil
}
