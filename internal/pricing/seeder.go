package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/opterra/internal/config"
	"github.com/sells-group/opterra/internal/metrics"
	"github.com/sells-group/opterra/internal/model"
	"github.com/sells-group/opterra/internal/resilience"
)

// PriceWriter is the slice of the store the seeder writes to.
type PriceWriter interface {
	UpsertPrices(ctx context.Context, quotes []model.PriceQuote) (int64, error)
	ListStalePrices(ctx context.Context, before time.Time, limit int) ([]model.PriceQuote, error)
}

// EntryError records a catalog entry that could not be priced.
type EntryError struct {
	Key string `json:"key"`
	Err string `json:"error"`
}

// SeedReport summarizes one seeding run.
type SeedReport struct {
	Requested int          `json:"requested"`
	Priced    int          `json:"priced"`
	Written   int64        `json:"written"`
	Errors    []EntryError `json:"errors,omitempty"`
	CostUSD   float64      `json:"cost_usd"`
	Duration  string       `json:"duration"`
}

// Seeder fetches quotes for a catalog and writes them to the store.
type Seeder struct {
	provider    Provider
	store       PriceWriter
	concurrency int
	limiter     *rate.Limiter
	retry       resilience.RetryConfig
	metrics     *metrics.Collector
}

// NewSeeder builds a Seeder from the seed config.
func NewSeeder(p Provider, store PriceWriter, cfg config.SeedConfig, m *metrics.Collector) *Seeder {
	conc := cfg.Concurrency
	if conc <= 0 {
		conc = 4
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 2
	}
	return &Seeder{
		provider:    p,
		store:       store,
		concurrency: conc,
		limiter:     rate.NewLimiter(rate.Limit(rps), max(int(rps), 1)),
		retry:       resilience.FromSeedConfig(cfg),
		metrics:     m,
	}
}

// Run prices every entry and upserts the successes in one batch. Per-entry
// failures are collected in the report; only a failed write is returned as
// an error.
func (s *Seeder) Run(ctx context.Context, entries []model.PriceKey) (*SeedReport, error) {
	start := time.Now()
	report := &SeedReport{Requested: len(entries)}

	var (
		mu     sync.Mutex
		quotes []model.PriceQuote
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, key := range entries {
		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				mu.Lock()
				report.Errors = append(report.Errors, EntryError{Key: key.ID(), Err: err.Error()})
				mu.Unlock()
				return nil
			}

			var spent float64
			priced, err := resilience.DoVal(gctx, s.retry, func(ctx context.Context) (Priced, error) {
				p, err := s.provider.Quote(ctx, key)
				spent += p.CostUSD
				return p, err
			})
			s.metrics.SeedResult(s.provider.Name(), err)
			s.metrics.APISpend(s.provider.Name(), spent)

			mu.Lock()
			defer mu.Unlock()
			report.CostUSD += spent
			if err != nil {
				zap.L().Warn("pricing: seed lookup failed",
					zap.String("key", key.ID()),
					zap.Error(err),
				)
				report.Errors = append(report.Errors, EntryError{Key: key.ID(), Err: err.Error()})
				return nil
			}
			quotes = append(quotes, priced.Quote)
			return nil
		})
	}
	_ = g.Wait()

	report.Priced = len(quotes)
	if len(quotes) > 0 {
		n, err := s.store.UpsertPrices(ctx, quotes)
		if err != nil {
			return report, eris.Wrap(err, "pricing: write seeded prices")
		}
		report.Written = n
	}
	report.Duration = time.Since(start).Round(time.Millisecond).String()

	zap.L().Info("pricing: seed complete",
		zap.String("provider", s.provider.Name()),
		zap.Int("requested", report.Requested),
		zap.Int("priced", report.Priced),
		zap.Int64("written", report.Written),
		zap.Int("errors", len(report.Errors)),
		zap.Float64("cost_usd", report.CostUSD),
	)
	return report, nil
}

// Refresh re-prices up to limit quotes fetched before the cutoff.
func (s *Seeder) Refresh(ctx context.Context, before time.Time, limit int) (*SeedReport, error) {
	stale, err := s.store.ListStalePrices(ctx, before, limit)
	if err != nil {
		return nil, eris.Wrap(err, "pricing: list stale prices")
	}
	keys := make([]model.PriceKey, 0, len(stale))
	for _, q := range stale {
		keys = append(keys, q.Key)
	}
	return s.Run(ctx, keys)
}
