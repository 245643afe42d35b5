package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"
)

// visitor tracks a token bucket per rate-limit key.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter is an in-process Allower backed by one token bucket per key.
// It serves single-instance deployments that run without Redis. Buckets idle
// for longer than ttl are evicted on a later call.
type LocalLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	ttl       time.Duration
	lastSweep time.Time
	nowFunc   func() time.Time
}

// NewLocalLimiter creates a LocalLimiter that forgets keys idle for ttl.
func NewLocalLimiter(ttl time.Duration) *LocalLimiter {
	return &LocalLimiter{
		visitors: make(map[string]*visitor),
		ttl:      ttl,
		nowFunc:  time.Now,
	}
}

// Allow takes one token from key's bucket. The bucket refills at
// limit.Rate per limit.Period and holds at most limit.Burst tokens.
func (l *LocalLimiter) Allow(_ context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	l.sweep(now)

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(perSecond(limit), limit.Burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	res := &redis_rate.Result{Limit: limit}
	r := v.limiter.ReserveN(now, 1)
	if !r.OK() {
		res.RetryAfter = limit.Period
		res.ResetAfter = limit.Period
		return res, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		res.RetryAfter = delay
		res.ResetAfter = refillTime(v.limiter, now, limit)
		return res, nil
	}

	res.Allowed = 1
	res.Remaining = int(v.limiter.TokensAt(now))
	res.RetryAfter = -1
	res.ResetAfter = refillTime(v.limiter, now, limit)
	return res, nil
}

// Len returns the number of tracked keys.
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *LocalLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.ttl {
		return
	}
	l.lastSweep = now
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, key)
		}
	}
}

func perSecond(limit redis_rate.Limit) rate.Limit {
	if limit.Period <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(limit.Rate) / limit.Period.Seconds())
}

// refillTime is how long until the bucket is full again.
func refillTime(lim *rate.Limiter, now time.Time, limit redis_rate.Limit) time.Duration {
	missing := float64(limit.Burst) - lim.TokensAt(now)
	perSec := float64(lim.Limit())
	if missing <= 0 || perSec <= 0 {
		return 0
	}
	return time.Duration(missing / perSec * float64(time.Second))
}
