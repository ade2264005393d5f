package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opterra/internal/config"
	"github.com/sells-group/opterra/internal/cost"
	"github.com/sells-group/opterra/internal/metrics"
	"github.com/sells-group/opterra/internal/model"
)

var testNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

type mockReader struct {
	mock.Mock
}

func (m *mockReader) GetPrice(ctx context.Context, id string) (*model.PriceQuote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PriceQuote), args.Error(1)
}

func newTestService(r PriceReader) *Service {
	return NewService(r, cost.NewCalculator(cost.DefaultRates()),
		config.PricingConfig{FreshnessDays: 30, StaticConfidence: 0.3},
		WithClock(func() time.Time { return testNow }),
		WithMetrics(metrics.NewCollector()),
	)
}

func gasKey() model.PriceKey {
	return model.PriceKey{FuelType: model.FuelGasTank, CapacityGallons: 50}
}

func TestLookup_Cached(t *testing.T) {
	ctx := context.Background()
	r := new(mockReader)
	cached := &model.PriceQuote{Key: gasKey(), Retail: 1250, Confidence: 0.8, Source: "anthropic", FetchedAt: testNow.AddDate(0, 0, -3)}
	r.On("GetPrice", ctx, "generic:gas_tank:50:better").Return(cached, nil).Once()

	res := newTestService(r).Lookup(ctx, gasKey())
	assert.False(t, res.Stale)
	assert.False(t, res.Static)
	assert.Equal(t, 1250.0, res.Quote.Retail)
	r.AssertExpectations(t)
}

func TestLookup_StaleStillReturned(t *testing.T) {
	ctx := context.Background()
	r := new(mockReader)
	old := &model.PriceQuote{Key: gasKey(), Retail: 990, FetchedAt: testNow.AddDate(0, 0, -45)}
	r.On("GetPrice", ctx, mock.Anything).Return(old, nil).Once()

	res := newTestService(r).Lookup(ctx, gasKey())
	assert.True(t, res.Stale)
	assert.False(t, res.Static)
	assert.Equal(t, 990.0, res.Quote.Retail)
}

func TestLookup_ModelFallsBackToGeneric(t *testing.T) {
	ctx := context.Background()
	r := new(mockReader)
	key := model.PriceKey{Manufacturer: "Rheem", Model: "XG50T", FuelType: model.FuelGasTank, CapacityGallons: 50}
	generic := &model.PriceQuote{Key: gasKey(), Retail: 1180, FetchedAt: testNow}
	r.On("GetPrice", ctx, "model:rheem:xg50t").Return(nil, nil).Once()
	r.On("GetPrice", ctx, "generic:gas_tank:50:better").Return(generic, nil).Once()

	res := newTestService(r).Lookup(ctx, key)
	assert.Equal(t, 1180.0, res.Quote.Retail)
	r.AssertExpectations(t)
}

func TestLookup_MissUsesStatic(t *testing.T) {
	ctx := context.Background()
	r := new(mockReader)
	r.On("GetPrice", ctx, mock.Anything).Return(nil, nil)

	res := newTestService(r).Lookup(ctx, gasKey())
	assert.True(t, res.Static)
	assert.Equal(t, SourceStatic, res.Quote.Source)
	assert.InDelta(t, 0.3, res.Quote.Confidence, 1e-9)
	assert.Equal(t, 1100.0, res.Quote.Retail)
}

func TestLookup_StoreErrorDegrades(t *testing.T) {
	ctx := context.Background()
	r := new(mockReader)
	key := model.PriceKey{Manufacturer: "Rheem", Model: "XG50T", FuelType: model.FuelGasTank}
	r.On("GetPrice", ctx, "model:rheem:xg50t").Return(nil, errors.New("database is locked")).Once()

	res := newTestService(r).Lookup(ctx, key)
	assert.True(t, res.Static)
	// The generic key is not tried once the store has failed.
	r.AssertNumberOfCalls(t, "GetPrice", 1)
}

func TestLookup_NilStore(t *testing.T) {
	res := newTestService(nil).Lookup(context.Background(), gasKey())
	assert.True(t, res.Static)
}

func TestStaticQuote(t *testing.T) {
	tests := []struct {
		name   string
		key    model.PriceKey
		retail float64
	}{
		{"gas 50 better", gasKey(), 1100},
		{"default capacity", model.PriceKey{FuelType: model.FuelElectricTank}, 800},
		{"good tier", model.PriceKey{FuelType: model.FuelGasTank, CapacityGallons: 50, Tier: model.TierGood}, 880},
		{"hybrid 65 best", model.PriceKey{FuelType: model.FuelHybrid, CapacityGallons: 65, Tier: model.TierBest}, 3195.47},
		{"tankless ignores capacity", model.PriceKey{FuelType: model.FuelTanklessGas, CapacityGallons: 80}, 1700},
		{"unknown fuel", model.PriceKey{FuelType: "steam"}, 1100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := StaticQuote(tt.key, 0.3, testNow)
			assert.InDelta(t, tt.retail, q.Retail, 0.5)
			assert.InDelta(t, q.Retail/1.35, q.Wholesale, 0.01)
			assert.Equal(t, testNow, q.FetchedAt)
		})
	}
}

func TestKeyFor(t *testing.T) {
	k := KeyFor(model.UnitProfile{FuelType: "Heat Pump"})
	assert.Equal(t, model.FuelHybrid, k.FuelType)
	assert.Equal(t, 50.0, k.CapacityGallons)

	k = KeyFor(model.UnitProfile{FuelType: model.FuelTanklessGas, CapacityGallons: 40})
	assert.Zero(t, k.CapacityGallons)

	k = KeyFor(model.UnitProfile{Manufacturer: "A.O. Smith", Model: "GCR 50", FuelType: model.FuelGasTank, CapacityGallons: 40})
	assert.Equal(t, "model:a.o.-smith:gcr-50", k.ID())
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(nil)

	supplied := model.Snapshot{Unit: model.UnitProfile{FuelType: model.FuelGasTank}, ReplacementCost: model.Float(3100)}
	out, r := svc.Apply(ctx, supplied, 80)
	assert.Nil(t, r)
	assert.Equal(t, 3100.0, *out.ReplacementCost)

	// Static gas tank: unit 1100 + labor 900 + permit 150 + haul-away 100.
	bare := model.Snapshot{Unit: model.UnitProfile{FuelType: model.FuelGasTank, Location: model.LocationGarage}}
	out, r = svc.Apply(ctx, bare, 80)
	require.NotNil(t, r)
	require.NotNil(t, out.ReplacementCost)
	assert.Equal(t, 2250.0, *out.ReplacementCost)
	assert.True(t, r.Price.Static)
	assert.Nil(t, bare.ReplacementCost)
}

func TestReplace_CodeUpgrades(t *testing.T) {
	snap := model.Snapshot{
		Unit: model.UnitProfile{FuelType: model.FuelGasTank, Location: model.LocationGarage},
		Environment: model.EnvironmentObservations{
			HousePSI:   model.Float(95),
			ClosedLoop: true,
		},
	}
	r := newTestService(nil).Replace(context.Background(), snap, 80)
	// 2250 + PRV 450 + expansion tank 350.
	assert.Equal(t, 3050.0, r.Estimate.Total)
}
