package pricing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opterra/internal/config"
	"github.com/sells-group/opterra/internal/model"
	"github.com/sells-group/opterra/internal/resilience"
)

// fakeProvider prices every key at a fixed amount, failing the keys listed
// in fail. Keys in flaky fail transiently once before succeeding.
type fakeProvider struct {
	fail  map[string]error
	flaky map[string]bool

	mu    sync.Mutex
	calls map[string]int

	inFlight, peak atomic.Int32
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Quote(_ context.Context, key model.PriceKey) (Priced, error) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)

	p.mu.Lock()
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[key.ID()]++
	attempt := p.calls[key.ID()]
	p.mu.Unlock()

	if err, ok := p.fail[key.ID()]; ok {
		return Priced{CostUSD: 0.01}, err
	}
	if p.flaky[key.ID()] && attempt == 1 {
		return Priced{CostUSD: 0.01}, resilience.NewTransientError(errors.New("overloaded"), 529)
	}
	return Priced{
		Quote:   model.PriceQuote{Key: key, Retail: 1000, Confidence: 0.7, Source: "fake", FetchedAt: testNow},
		CostUSD: 0.01,
	}, nil
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) UpsertPrices(ctx context.Context, quotes []model.PriceQuote) (int64, error) {
	args := m.Called(ctx, quotes)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockWriter) ListStalePrices(ctx context.Context, before time.Time, limit int) ([]model.PriceQuote, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PriceQuote), args.Error(1)
}

func testSeeder(p Provider, w PriceWriter, concurrency int) *Seeder {
	s := NewSeeder(p, w, config.SeedConfig{Concurrency: concurrency, RatePerSec: 1000, MaxRetries: 2}, nil)
	s.retry.InitialBackoff = time.Millisecond
	s.retry.MaxBackoff = 5 * time.Millisecond
	return s
}

func catalog(n int) []model.PriceKey {
	keys := make([]model.PriceKey, n)
	for i := range n {
		keys[i] = model.PriceKey{FuelType: model.FuelGasTank, CapacityGallons: float64(30 + i)}
	}
	return keys
}

func TestSeeder_Run(t *testing.T) {
	ctx := context.Background()
	keys := catalog(6)
	p := &fakeProvider{
		fail:  map[string]error{keys[2].ID(): errors.New("pricing: no price")},
		flaky: map[string]bool{keys[4].ID(): true},
	}
	w := new(mockWriter)
	w.On("UpsertPrices", ctx, mock.MatchedBy(func(q []model.PriceQuote) bool { return len(q) == 5 })).
		Return(int64(5), nil).Once()

	report, err := testSeeder(p, w, 3).Run(ctx, keys)
	require.NoError(t, err)
	assert.Equal(t, 6, report.Requested)
	assert.Equal(t, 5, report.Priced)
	assert.Equal(t, int64(5), report.Written)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, keys[2].ID(), report.Errors[0].Key)

	// The permanent failure is not retried; the transient one is.
	assert.Equal(t, 1, p.calls[keys[2].ID()])
	assert.Equal(t, 2, p.calls[keys[4].ID()])
	// Every attempt is billed, including failed ones.
	assert.InDelta(t, 0.07, report.CostUSD, 1e-9)
	assert.LessOrEqual(t, p.peak.Load(), int32(3))
	w.AssertExpectations(t)
}

func TestSeeder_AllFailSkipsWrite(t *testing.T) {
	keys := catalog(2)
	p := &fakeProvider{fail: map[string]error{
		keys[0].ID(): errors.New("no price"),
		keys[1].ID(): errors.New("no price"),
	}}
	w := new(mockWriter)

	report, err := testSeeder(p, w, 2).Run(context.Background(), keys)
	require.NoError(t, err)
	assert.Zero(t, report.Priced)
	assert.Len(t, report.Errors, 2)
	w.AssertNotCalled(t, "UpsertPrices", mock.Anything, mock.Anything)
}

func TestSeeder_WriteError(t *testing.T) {
	ctx := context.Background()
	w := new(mockWriter)
	w.On("UpsertPrices", ctx, mock.Anything).Return(int64(0), errors.New("disk full")).Once()

	report, err := testSeeder(&fakeProvider{}, w, 1).Run(ctx, catalog(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pricing: write seeded prices")
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Priced)
}

func TestSeeder_Refresh(t *testing.T) {
	ctx := context.Background()
	cutoff := testNow.AddDate(0, 0, -30)
	stale := []model.PriceQuote{{Key: gasKey(), Retail: 900}}

	w := new(mockWriter)
	w.On("ListStalePrices", ctx, cutoff, 50).Return(stale, nil).Once()
	w.On("UpsertPrices", ctx, mock.MatchedBy(func(q []model.PriceQuote) bool {
		return len(q) == 1 && q[0].Key == gasKey() && q[0].Retail == 1000
	})).Return(int64(1), nil).Once()

	report, err := testSeeder(&fakeProvider{}, w, 2).Refresh(ctx, cutoff, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Written)
	w.AssertExpectations(t)
}

func TestSeeder_RefreshListError(t *testing.T) {
	ctx := context.Background()
	w := new(mockWriter)
	w.On("ListStalePrices", ctx, mock.Anything, 10).Return(nil, errors.New("boom")).Once()

	_, err := testSeeder(&fakeProvider{}, w, 1).Refresh(ctx, testNow, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pricing: list stale prices")
}

func TestNewSeeder_Defaults(t *testing.T) {
	s := NewSeeder(&fakeProvider{}, new(mockWriter), config.SeedConfig{}, nil)
	assert.Equal(t, 4, s.concurrency)
	assert.Equal(t, 3, s.retry.MaxAttempts)
}
