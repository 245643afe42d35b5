// Package redis decorates product repositories with a Redis read-through cache.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/TradeCatalog/internal/domain"
	"github.com/utafrali/TradeCatalog/internal/repository"
)

const (
	keyPrefix = "catalog:product:"
	cacheName = "product"
)

// CacheRecorder observes cache lookups.
type CacheRecorder interface {
	CacheResult(cache, result string)
}

type noopRecorder struct{}

func (noopRecorder) CacheResult(string, string) {}

// CachedProductRepository caches GetByID results. Writes go to the wrapped
// repository first and evict the entry afterwards. Redis failures degrade to
// uncached reads.
type CachedProductRepository struct {
	next     repository.ProductRepository
	client   redis.Cmdable
	ttl      time.Duration
	logger   *slog.Logger
	recorder CacheRecorder
}

// NewCachedProductRepository wraps next. A nil recorder disables cache metrics.
func NewCachedProductRepository(next repository.ProductRepository, client redis.Cmdable, ttl time.Duration, logger *slog.Logger, recorder CacheRecorder) *CachedProductRepository {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &CachedProductRepository{
		next:     next,
		client:   client,
		ttl:      ttl,
		logger:   logger,
		recorder: recorder,
	}
}

func key(id string) string { return keyPrefix + id }

func (r *CachedProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	data, err := r.client.Get(ctx, key(id)).Bytes()
	switch {
	case err == nil:
		var p domain.Product
		if jsonErr := json.Unmarshal(data, &p); jsonErr == nil {
			r.recorder.CacheResult(cacheName, "hit")
			return &p, nil
		}
		r.logger.WarnContext(ctx, "discarding undecodable cached product", slog.String("product_id", id))
	case errors.Is(err, redis.Nil):
	default:
		r.recorder.CacheResult(cacheName, "error")
		r.logger.WarnContext(ctx, "product cache read failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
		return r.next.GetByID(ctx, id)
	}

	r.recorder.CacheResult(cacheName, "miss")
	p, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, p)
	return p, nil
}

func (r *CachedProductRepository) List(ctx context.Context, filter repository.SearchFilter) ([]domain.Product, int, error) {
	return r.next.List(ctx, filter)
}

func (r *CachedProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return r.next.Create(ctx, p)
}

func (r *CachedProductRepository) Update(ctx context.Context, p *domain.Product) error {
	if err := r.next.Update(ctx, p); err != nil {
		return err
	}
	r.evict(ctx, p.ID)
	return nil
}

func (r *CachedProductRepository) MarkDeleted(ctx context.Context, id string, at time.Time) (bool, error) {
	changed, err := r.next.MarkDeleted(ctx, id, at)
	if err != nil {
		return false, err
	}
	if changed {
		r.evict(ctx, id)
	}
	return changed, nil
}

func (r *CachedProductRepository) Restore(ctx context.Context, id string, at time.Time) (bool, error) {
	changed, err := r.next.Restore(ctx, id, at)
	if err != nil {
		return false, err
	}
	if changed {
		r.evict(ctx, id)
	}
	return changed, nil
}

func (r *CachedProductRepository) store(ctx context.Context, p *domain.Product) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key(p.ID), data, r.ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "product cache write failed",
			slog.String("product_id", p.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (r *CachedProductRepository) evict(ctx context.Context, id string) {
	if err := r.client.Del(ctx, key(id)).Err(); err != nil {
		r.logger.WarnContext(ctx, "product cache eviction failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}
}
