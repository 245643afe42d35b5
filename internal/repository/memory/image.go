package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/utafrali/TradeCatalog/internal/domain"
	apperrors "github.com/utafrali/TradeCatalog/pkg/errors"
)

// ImageRepository implements repository.ImageRepository over a map.
type ImageRepository struct {
	mu     sync.RWMutex
	images map[string]domain.ProductImage
}

// NewImageRepository creates an empty in-memory image repository.
func NewImageRepository() *ImageRepository {
	return &ImageRepository{images: make(map[string]domain.ProductImage)}
}

func (r *ImageRepository) Create(_ context.Context, img *domain.ProductImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.images[img.ID]; exists {
		return apperrors.AlreadyExists("image", "id", img.ID)
	}
	if img.IsPrimary {
		for id, other := range r.images {
			if other.ProductID == img.ProductID && other.IsPrimary {
				other.IsPrimary = false
				r.images[id] = other
			}
		}
	}
	r.images[img.ID] = *img
	return nil
}

func (r *ImageRepository) ListByProduct(_ context.Context, productID string) ([]domain.ProductImage, error) {
	r.mu.RLock()
	out := make([]domain.ProductImage, 0)
	for _, img := range r.images {
		if img.ProductID == productID {
			out = append(out, img)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ImageRepository) Delete(_ context.Context, productID, imageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	img, ok := r.images[imageID]
	if !ok || img.ProductID != productID {
		return apperrors.NotFound("image", imageID)
	}
	delete(r.images, imageID)
	return nil
}
