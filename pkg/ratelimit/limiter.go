// Package ratelimit admits or rejects requests per client key within a fixed
// window, in front of every lookup handler.
package ratelimit

import (
	"context"
	"time"

	"go-vortexguard/pkg/logger"
	"go-vortexguard/pkg/metrics"
)

// Store holds the per-key windows. Implementations must apply the whole
// check-and-count step atomically.
type Store interface {
	Admit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Limiter applies one handler's limit. Limiters sharing a Store are kept
// apart by name.
type Limiter struct {
	name   string
	limit  int
	window time.Duration
	store  Store
	exempt *Exempt
}

func New(name string, limit int, window time.Duration, store Store, exempt *Exempt) *Limiter {
	return &Limiter{
		name:   name,
		limit:  limit,
		window: window,
		store:  store,
		exempt: exempt,
	}
}

func (l *Limiter) Name() string {
	return l.name
}

// Admit reports whether the client may proceed. A failing store admits the
// request.
func (l *Limiter) Admit(ctx context.Context, clientKey string) bool {
	if l.exempt != nil && l.exempt.ContainsIP(clientKey) {
		return true
	}

	admitted, err := l.store.Admit(ctx, l.name+":"+clientKey, l.limit, l.window)
	if err != nil {
		logger.Log.Errorf("rate limit store failed for %s (%s): %v", clientKey, l.name, err)
		metrics.RateLimitStoreErrors.WithLabelValues(l.name).Inc()
		return true
	}

	if !admitted {
		metrics.RateLimited.WithLabelValues(l.name).Inc()
	}
	return admitted
}
