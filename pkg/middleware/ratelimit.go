package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis_rate/v10"

	"github.com/utafrali/TradeCatalog/pkg/httputil"
	"github.com/utafrali/TradeCatalog/pkg/logger"
)

// Allower is satisfied by *redis_rate.Limiter.
type Allower interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

// KeyFunc derives the rate-limit bucket for a request.
type KeyFunc func(r *http.Request) string

// KeyByCaller buckets identified callers by user id and everyone else by
// remote IP. Mount it after Identity.
func KeyByCaller(r *http.Request) string {
	if id := UserIDFromContext(r.Context()); id != "" {
		return "user:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// RateLimit rejects requests over limit with 429. Limiter failures are logged
// and the request is let through.
func RateLimit(limiter Allower, limit redis_rate.Limit, keyFn KeyFunc, log *slog.Logger) func(http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = KeyByCaller
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "catalog:" + keyFn(r)

			res, err := limiter.Allow(r.Context(), key, limit)
			if err != nil {
				log.WarnContext(r.Context(), "rate limiter unavailable, allowing request",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(max(res.Remaining, 0)))
			h.Set("X-RateLimit-Reset", strconv.Itoa(ceilSeconds(res.ResetAfter)))

			if res.Allowed == 0 {
				h.Set("Retry-After", strconv.Itoa(max(ceilSeconds(res.RetryAfter), 1)))
				httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:      "RATE_LIMITED",
						Message:   "too many requests",
						RequestID: logger.CorrelationIDFromContext(r.Context()),
					},
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
