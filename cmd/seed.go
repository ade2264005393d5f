package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/opterra/internal/cost"
	"github.com/sells-group/opterra/internal/metrics"
	"github.com/sells-group/opterra/internal/pricing"
	anthropicpkg "github.com/sells-group/opterra/pkg/anthropic"
	"github.com/sells-group/opterra/pkg/perplexity"
)

var (
	seedCatalog  string
	seedProvider string
	seedStale    bool
	seedLimit    int
)

var seedCmd = &cobra.Command{
	Use:   "seed-prices",
	Short: "Fetch unit prices into the price cache",
	Long:  "Prices every unit in a CSV or XLSX catalog through an AI price lookup and upserts the quotes. With --stale, re-prices the cached quotes older than the freshness window instead.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if seedProvider != "" {
			cfg.Pricing.Provider = seedProvider
		}
		if err := cfg.Validate("seed"); err != nil {
			return err
		}
		if seedCatalog == "" && !seedStale {
			return eris.New("seed-prices: one of --catalog or --stale is required")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		calc := cost.NewCalculator(cost.DefaultRates())
		seeder := pricing.NewSeeder(newPriceProvider(calc), st, cfg.Seed, metrics.NewCollector())

		var report *pricing.SeedReport
		if seedStale {
			before := time.Now().UTC().AddDate(0, 0, -cfg.Pricing.FreshnessDays)
			report, err = seeder.Refresh(ctx, before, seedLimit)
		} else {
			keys, lerr := pricing.LoadCatalog(seedCatalog)
			if lerr != nil {
				return lerr
			}
			if seedLimit > 0 && len(keys) > seedLimit {
				keys = keys[:seedLimit]
			}
			report, err = seeder.Run(ctx, keys)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "requested %d, priced %d, written %d, cost %s, took %s\n",
			report.Requested, report.Priced, report.Written, usd(report.CostUSD), report.Duration)
		for _, e := range report.Errors {
			fmt.Fprintf(out, "  %s: %s\n", e.Key, e.Err)
		}
		return nil
	},
}

// newPriceProvider builds the lookup selected by pricing.provider.
func newPriceProvider(calc *cost.Calculator) pricing.Provider {
	switch cfg.Pricing.Provider {
	case "perplexity":
		client := perplexity.NewClient(perplexity.Config{
			APIKey:  cfg.Perplexity.Key,
			BaseURL: cfg.Perplexity.BaseURL,
			Model:   cfg.Perplexity.Model,
		}, nil)
		zap.L().Info("pricing through perplexity", zap.String("model", cfg.Perplexity.Model))
		return pricing.NewPerplexityLookup(client, calc)
	default:
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		zap.L().Info("pricing through anthropic", zap.String("model", cfg.Anthropic.Model))
		return pricing.NewAnthropicLookup(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, calc)
	}
}

func init() {
	seedCmd.Flags().StringVar(&seedCatalog, "catalog", "", "catalog file (.csv or .xlsx)")
	seedCmd.Flags().StringVar(&seedProvider, "provider", "", "price provider: anthropic or perplexity (default from config)")
	seedCmd.Flags().BoolVar(&seedStale, "stale", false, "re-price cached quotes past the freshness window")
	seedCmd.Flags().IntVar(&seedLimit, "limit", 0, "maximum entries to price (0 for all)")
	rootCmd.AddCommand(seedCmd)
}
