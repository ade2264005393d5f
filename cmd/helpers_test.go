//go:build !integration

package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/opterra/internal/config"
	"github.com/sells-group/opterra/internal/model"
)

// testConfig installs a config pointing at a fresh SQLite file.
func testConfig(t *testing.T) {
	t.Helper()
	zap.ReplaceGlobals(zap.NewNop())
	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:     "sqlite",
			SQLitePath: filepath.Join(t.TempDir(), "opterra.db"),
		},
		Server:  config.ServerConfig{Port: 8080, CacheSize: 16, AllowedOrigins: []string{"*"}},
		Pricing: config.PricingConfig{FreshnessDays: 30, Provider: "anthropic", StaticConfidence: 0.3},
		Notify:  config.NotifyConfig{TimeoutSecs: 5},
		Seed:    config.SeedConfig{Concurrency: 2, RatePerSec: 100, MaxRetries: 1},
		Log:     config.LogConfig{Level: "error", Format: "json"},
	}
}

func testEnv(t *testing.T, opts envOptions) *appEnv {
	t.Helper()
	testConfig(t)
	env, err := initEnv(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(env.Close)
	return env
}

// leakingTank is a garage gas tank with a tank-body leak.
func leakingTank() model.Snapshot {
	return model.Snapshot{
		Unit: model.UnitProfile{CalendarAge: 9, FuelType: model.FuelGasTank, Location: model.LocationGarage},
		Environment: model.EnvironmentObservations{
			HousePSI:    model.Float(60),
			HardnessGPG: model.Float(8),
			Occupants:   3,
		},
		Condition: model.ConditionObservations{ActiveLeak: true, LeakSource: model.LeakTankBody},
	}
}
