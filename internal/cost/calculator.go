// Package cost prices the replacement a verdict recommends and tallies the AI
// spend of the pricing and guidance collaborators.
package cost

import (
	"math"

	"github.com/sells-group/opterra/internal/model"
)

// Rates holds install pricing and per-provider API rates.
type Rates struct {
	Install    InstallRates         `yaml:"install" mapstructure:"install"`
	Anthropic  map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityRate       `yaml:"perplexity" mapstructure:"perplexity"`
}

// InstallRates prices the labour and code work around a unit swap.
type InstallRates struct {
	Labor         map[model.FuelType]float64   `yaml:"labor" mapstructure:"labor"`
	Location      map[model.Location]float64   `yaml:"location" mapstructure:"location"`
	Conversion    map[model.Technology]float64 `yaml:"conversion" mapstructure:"conversion"`
	PRV           float64                      `yaml:"prv" mapstructure:"prv"`
	ExpansionTank float64                      `yaml:"expansion_tank" mapstructure:"expansion_tank"`
	Permit        float64                      `yaml:"permit" mapstructure:"permit"`
	Haulaway      float64                      `yaml:"haulaway" mapstructure:"haulaway"`
	// WholesaleMarkup prices a unit from its wholesale cost when no retail
	// price is known.
	WholesaleMarkup float64 `yaml:"wholesale_markup" mapstructure:"wholesale_markup"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	BatchDiscount float64 `yaml:"batch_discount" mapstructure:"batch_discount"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// PerplexityRate holds Perplexity pricing.
type PerplexityRate struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// InstallSpec describes the job around the new unit.
type InstallSpec struct {
	FuelType model.FuelType
	Location model.Location
	// Current is the fuel type being replaced. A different technology means
	// venting, gas line or electrical work.
	Current            model.FuelType
	NeedsPRV           bool
	NeedsExpansionTank bool
}

// SpecFor derives the install spec for replacing the snapshot's unit with a
// unit of fuel type target. Pressure above maxPSI without a PRV, and a closed
// loop without a working expansion tank, become code upgrades.
func SpecFor(s model.Snapshot, target model.FuelType, maxPSI float64) InstallSpec {
	env := s.Environment
	return InstallSpec{
		FuelType:           target,
		Location:           s.Unit.Location,
		Current:            s.Unit.FuelType,
		NeedsPRV:           env.HousePSI != nil && *env.HousePSI > maxPSI && !env.HasPRV,
		NeedsExpansionTank: env.ClosedLoop && env.ExpansionTank != model.ExpansionFunctional,
	}
}

// LineItem is one priced component of a replacement.
type LineItem struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Estimate is an itemized replacement price.
type Estimate struct {
	Items      []LineItem `json:"items"`
	Total      float64    `json:"total"`
	Confidence float64    `json:"confidence"`
}

// Calculator computes replacement estimates and API costs.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Replacement prices installing the quoted unit under spec. The total is the
// opaque replacement cost handed to the engine.
func (c *Calculator) Replacement(q model.PriceQuote, spec InstallSpec) Estimate {
	r := c.rates.Install
	var items []LineItem
	add := func(name string, amount float64) {
		if amount > 0 {
			items = append(items, LineItem{Name: name, Amount: round2(amount)})
		}
	}

	unit := q.Retail
	if unit <= 0 {
		unit = q.Wholesale * r.WholesaleMarkup
	}
	add("unit", unit)

	mult := 1.0
	if m, ok := r.Location[spec.Location]; ok && m > 0 {
		mult = m
	}
	add("labor", r.Labor[spec.FuelType]*mult)

	if spec.Current != "" && spec.Current.Technology() != spec.FuelType.Technology() {
		add("conversion", r.Conversion[spec.FuelType.Technology()])
	}
	if spec.NeedsPRV {
		add("pressure-reducing valve", r.PRV)
	}
	if spec.NeedsExpansionTank {
		add("thermal expansion tank", r.ExpansionTank)
	}
	add("permit", r.Permit)
	add("haul-away", r.Haulaway)

	var total float64
	for _, it := range items {
		total += it.Amount
	}
	return Estimate{Items: items, Total: round2(total), Confidence: q.Confidence}
}

// Claude computes the cost for a Claude API call.
func (c *Calculator) Claude(model string, isBatch bool, input, output, cacheWrite, cacheRead int) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}

	batchMul := 1.0
	if isBatch {
		batchMul = rate.BatchDiscount
	}

	inCost := (float64(input) / 1e6) * rate.Input * batchMul
	outCost := (float64(output) / 1e6) * rate.Output * batchMul
	cwCost := (float64(cacheWrite) / 1e6) * rate.Input * rate.CacheWriteMul * batchMul
	crCost := (float64(cacheRead) / 1e6) * rate.Input * rate.CacheReadMul * batchMul

	return inCost + outCost + cwCost + crCost
}

// PerplexityQuery returns the flat cost per Perplexity query.
func (c *Calculator) PerplexityQuery() float64 {
	return c.rates.Perplexity.PerQuery
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// DefaultRates returns regional-average install pricing and list API rates.
func DefaultRates() Rates {
	return Rates{
		Install: InstallRates{
			Labor: map[model.FuelType]float64{
				model.FuelGasTank:          900,
				model.FuelElectricTank:     700,
				model.FuelHybrid:           1100,
				model.FuelTanklessGas:      1500,
				model.FuelTanklessElectric: 1000,
			},
			Location: map[model.Location]float64{
				model.LocationGarage:   1.0,
				model.LocationBasement: 1.1,
				model.LocationUtility:  1.0,
				model.LocationCloset:   1.2,
				model.LocationAttic:    1.5,
				model.LocationExterior: 1.1,
			},
			Conversion: map[model.Technology]float64{
				model.TechTank:     400,
				model.TechHybrid:   800,
				model.TechTankless: 1200,
			},
			PRV:             450,
			ExpansionTank:   350,
			Permit:          150,
			Haulaway:        100,
			WholesaleMarkup: 1.35,
		},
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 0.80, Output: 4.00,
				BatchDiscount: 0.5, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00,
				BatchDiscount: 0.5, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Perplexity: PerplexityRate{PerQuery: 0.005},
	}
}
