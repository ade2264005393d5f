package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/opterra/internal/cost"
	"github.com/sells-group/opterra/internal/engine"
	"github.com/sells-group/opterra/internal/guidance"
	"github.com/sells-group/opterra/internal/metrics"
	"github.com/sells-group/opterra/internal/model"
	"github.com/sells-group/opterra/internal/notify"
	"github.com/sells-group/opterra/internal/pricing"
	"github.com/sells-group/opterra/internal/store"
	anthropicpkg "github.com/sells-group/opterra/pkg/anthropic"
	"github.com/sells-group/opterra/pkg/notion"
)

// appEnv holds the initialized collaborators shared by the assess, serve
// and remind commands.
type appEnv struct {
	Store      store.Store // may be nil
	Engine     *engine.Engine
	Pricing    *pricing.Service
	Calc       *cost.Calculator
	Advisor    *guidance.Advisor
	Dispatcher *notify.Dispatcher // nil unless delivery is enabled
	Metrics    *metrics.Collector
}

// envOptions selects which collaborators initEnv builds.
type envOptions struct {
	// Store opens and migrates the configured store.
	Store bool
	// StoreOptional degrades to static pricing when the store cannot be opened.
	StoreOptional bool
	// Deliver starts the lead and reminder dispatcher.
	Deliver bool
}

// Close drains pending deliveries and releases the store.
func (e *appEnv) Close() {
	if e.Dispatcher != nil {
		e.Dispatcher.Wait()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv builds the engine, pricing service, advisor and, when asked, the
// store and dispatcher. Callers should defer env.Close().
func initEnv(ctx context.Context, opts envOptions) (*appEnv, error) {
	params := engine.WithConfig(engine.DefaultParams(), cfg.Engine)
	if err := engine.ValidateParams(params); err != nil {
		return nil, eris.Wrap(err, "engine params")
	}

	env := &appEnv{
		Engine:  engine.New(params),
		Calc:    cost.NewCalculator(cost.DefaultRates()),
		Metrics: metrics.NewCollector(),
	}

	if opts.Store {
		st, err := openStore(ctx)
		switch {
		case err == nil:
			env.Store = st
		case opts.StoreOptional:
			zap.L().Warn("store unavailable, pricing from the static table", zap.Error(err))
		default:
			return nil, err
		}
	}

	var reader pricing.PriceReader
	if env.Store != nil {
		reader = env.Store
	}
	env.Pricing = pricing.NewService(reader, env.Calc, cfg.Pricing, pricing.WithMetrics(env.Metrics))

	var ac anthropicpkg.Client
	if cfg.Anthropic.Key != "" {
		ac = anthropicpkg.NewClient(cfg.Anthropic.Key)
	} else {
		zap.L().Debug("OPTERRA_ANTHROPIC_KEY not set, guidance uses canned explanations")
	}
	env.Advisor = guidance.NewAdvisor(ac, cfg.Anthropic, cfg.Guidance, env.Metrics)

	if opts.Deliver {
		env.Dispatcher = notify.NewDispatcher(dispatcherOptions(env))
	}

	return env, nil
}

// openStore opens the configured store and applies pending migrations.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func dispatcherOptions(env *appEnv) notify.Options {
	opts := notify.Options{
		Metrics: env.Metrics,
		Timeout: time.Duration(cfg.Notify.TimeoutSecs) * time.Second,
	}
	if env.Store != nil {
		opts.Store = env.Store
	}

	if cfg.Notion.Token != "" && cfg.Notion.LeadDB != "" {
		nc := notion.NewClient(cfg.Notion.Token, notion.DefaultRPS)
		dbID := cfg.Notion.LeadDB
		opts.Notion = func(ctx context.Context, lead model.Lead) error {
			_, err := notion.UpsertLeadPage(ctx, nc, dbID, lead)
			return err
		}
		zap.L().Info("notion lead sync enabled")
	}

	if cfg.Notify.WebhookURL != "" {
		opts.Webhook = notify.NewWebhook(cfg.Notify.WebhookURL, opts.Timeout)
		zap.L().Info("webhook notifications enabled")
	}

	return opts
}
