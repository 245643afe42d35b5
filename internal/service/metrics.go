package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/TradeCatalog/internal/domain"
)

// Metrics counts catalog decisions. A nil *Metrics records nothing.
type Metrics struct {
	priceResolutions   *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	cacheRequests      *prometheus.CounterVec
}

// NewMetrics registers the catalog counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		priceResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_price_resolutions_total",
				Help: "Prices resolved for callers, by role and tier.",
			},
			[]string{"role", "tier"},
		),
		validationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_validation_failures_total",
				Help: "Rejected catalog writes, by failure kind.",
			},
			[]string{"kind"},
		),
		cacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_cache_requests_total",
				Help: "Cache lookups, by cache and result.",
			},
			[]string{"cache", "result"},
		),
	}
}

// PriceResolved counts one resolution.
func (m *Metrics) PriceResolved(role domain.Role, tier domain.Tier) {
	if m == nil {
		return
	}
	m.priceResolutions.WithLabelValues(role.String(), string(tier)).Inc()
}

// ValidationFailed counts a rejected write.
func (m *Metrics) ValidationFailed(err error) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(domain.FailureKind(err)).Inc()
}

// CacheResult counts a cache lookup outcome.
func (m *Metrics) CacheResult(cache, result string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(cache, result).Inc()
}
