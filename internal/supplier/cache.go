package supplier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/TradeCatalog/internal/domain"
)

const (
	cacheKeyPrefix = "catalog:supplier:"
	cacheName      = "supplier"
)

// CacheRecorder observes cache lookups.
type CacheRecorder interface {
	CacheResult(cache, result string)
}

type noopRecorder struct{}

func (noopRecorder) CacheResult(string, string) {}

// CachedDirectory keeps Directory lookups in Redis until they expire or are
// invalidated by a user event. Redis failures fall through to the directory.
type CachedDirectory struct {
	next     Directory
	client   redis.Cmdable
	ttl      time.Duration
	logger   *slog.Logger
	recorder CacheRecorder
}

// NewCachedDirectory wraps next. A nil recorder disables cache metrics.
func NewCachedDirectory(next Directory, client redis.Cmdable, ttl time.Duration, logger *slog.Logger, recorder CacheRecorder) *CachedDirectory {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &CachedDirectory{next: next, client: client, ttl: ttl, logger: logger, recorder: recorder}
}

func cacheKey(id string) string { return cacheKeyPrefix + id }

func (d *CachedDirectory) Lookup(ctx context.Context, id string) (*domain.Supplier, error) {
	data, err := d.client.Get(ctx, cacheKey(id)).Bytes()
	switch {
	case err == nil:
		var s domain.Supplier
		if json.Unmarshal(data, &s) == nil {
			d.recorder.CacheResult(cacheName, "hit")
			return &s, nil
		}
	case errors.Is(err, redis.Nil):
	default:
		d.recorder.CacheResult(cacheName, "error")
		d.logger.WarnContext(ctx, "supplier cache read failed",
			slog.String("supplier_id", id),
			slog.String("error", err.Error()),
		)
		return d.next.Lookup(ctx, id)
	}

	d.recorder.CacheResult(cacheName, "miss")
	s, err := d.next.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(s); err == nil {
		if err := d.client.Set(ctx, cacheKey(id), data, d.ttl).Err(); err != nil {
			d.logger.WarnContext(ctx, "supplier cache write failed",
				slog.String("supplier_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return s, nil
}

// Invalidate drops the cached entry for id.
func (d *CachedDirectory) Invalidate(ctx context.Context, id string) error {
	if err := d.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		return fmt.Errorf("invalidate supplier %s: %w", id, err)
	}
	return nil
}
