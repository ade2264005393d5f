// Package pricing resolves unit prices for replacement budgets. Quotes come
// from the store cache when present and from a static tier table otherwise;
// a seeding job refreshes the cache from AI price lookups.
package pricing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/opterra/internal/config"
	"github.com/sells-group/opterra/internal/cost"
	"github.com/sells-group/opterra/internal/metrics"
	"github.com/sells-group/opterra/internal/model"
)

// PriceReader is the slice of the store the service reads from.
type PriceReader interface {
	GetPrice(ctx context.Context, id string) (*model.PriceQuote, error)
}

// Result is a resolved quote and where it came from.
type Result struct {
	Quote  model.PriceQuote `json:"quote"`
	Stale  bool             `json:"stale"`
	Static bool             `json:"static"`
}

// Replacement is a priced replacement budget.
type Replacement struct {
	Price    Result        `json:"price"`
	Estimate cost.Estimate `json:"estimate"`
}

// Service looks up prices and turns them into replacement budgets.
type Service struct {
	store            PriceReader
	calc             *cost.Calculator
	freshness        time.Duration
	staticConfidence float64
	metrics          *metrics.Collector
	now              func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records lookup sources on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds a Service. A nil store prices everything statically.
func NewService(store PriceReader, calc *cost.Calculator, cfg config.PricingConfig, opts ...Option) *Service {
	days := cfg.FreshnessDays
	if days <= 0 {
		days = 30
	}
	s := &Service{
		store:            store,
		calc:             calc,
		freshness:        time.Duration(days) * 24 * time.Hour,
		staticConfidence: cfg.StaticConfidence,
		now:              time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Lookup never fails: a missing quote or an unreachable store falls back to
// the static table. A model key that is not cached is retried as the generic
// (fuel, capacity, tier) key before falling back.
func (s *Service) Lookup(ctx context.Context, key model.PriceKey) Result {
	now := s.now().UTC()

	candidates := []model.PriceKey{key}
	if key.IsModel() {
		generic := key
		generic.Manufacturer, generic.Model = "", ""
		candidates = append(candidates, generic)
	}

	if s.store != nil {
		for _, k := range candidates {
			q, err := s.store.GetPrice(ctx, k.ID())
			if err != nil {
				zap.L().Warn("pricing: store lookup failed, using static table",
					zap.String("key", k.ID()),
					zap.Error(err),
				)
				break
			}
			if q == nil {
				continue
			}
			stale := q.Stale(now, s.freshness)
			if stale {
				s.metrics.PriceLookup("stale")
			} else {
				s.metrics.PriceLookup("cache")
			}
			return Result{Quote: *q, Stale: stale}
		}
	}

	s.metrics.PriceLookup(SourceStatic)
	return Result{Quote: StaticQuote(key, s.staticConfidence, now), Static: true}
}

// Replace prices a like-for-like replacement of the snapshot's unit.
func (s *Service) Replace(ctx context.Context, snap model.Snapshot, maxPSI float64) Replacement {
	key := KeyFor(snap.Unit)
	price := s.Lookup(ctx, key)
	spec := cost.SpecFor(snap, key.FuelType, maxPSI)
	return Replacement{Price: price, Estimate: s.calc.Replacement(price.Quote, spec)}
}

// Apply fills in the snapshot's replacement cost when the caller did not
// supply one. A supplied cost is treated as authoritative.
func (s *Service) Apply(ctx context.Context, snap model.Snapshot, maxPSI float64) (model.Snapshot, *Replacement) {
	if snap.ReplacementCost != nil {
		return snap, nil
	}
	r := s.Replace(ctx, snap, maxPSI)
	snap.ReplacementCost = model.Float(r.Estimate.Total)
	return snap, &r
}

// KeyFor derives the price key for a unit.
func KeyFor(u model.UnitProfile) model.PriceKey {
	fuel := u.FuelType
	if !fuel.Known() {
		fuel = model.ParseFuelType(string(fuel))
	}
	capacity := u.CapacityGallons
	if fuel.HasTank() && capacity <= 0 {
		capacity = defaultCapacity
	}
	if !fuel.HasTank() {
		capacity = 0
	}
	return model.PriceKey{
		Manufacturer:    u.Manufacturer,
		Model:           u.Model,
		FuelType:        fuel,
		CapacityGallons: capacity,
		Tier:            u.Tier,
	}
}
