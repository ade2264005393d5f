package pricing

import (
	"math"
	"time"

	"github.com/sells-group/opterra/internal/model"
)

// SourceStatic tags quotes that came from the built-in tier table.
const SourceStatic = "static"

// defaultCapacity is assumed for tank units with no stated capacity.
const defaultCapacity = 50.0

// staticRetail is the national-average unit price of a 50 gallon, "better"
// tier unit (tankless: one whole-house unit). Install is priced separately.
var staticRetail = map[model.FuelType]float64{
	model.FuelGasTank:          1100,
	model.FuelElectricTank:     800,
	model.FuelHybrid:           2100,
	model.FuelTanklessGas:      1700,
	model.FuelTanklessElectric: 950,
}

var tierFactor = map[model.Tier]float64{
	model.TierGood:   0.8,
	model.TierBetter: 1.0,
	model.TierBest:   1.3,
}

// StaticQuote prices key from the tier table. Tank prices scale sub-linearly
// with capacity.
func StaticQuote(key model.PriceKey, confidence float64, now time.Time) model.PriceQuote {
	fuel := key.FuelType
	if !fuel.Known() {
		fuel = model.FuelGasTank
	}
	retail := staticRetail[fuel]

	if fuel.HasTank() {
		capacity := key.CapacityGallons
		if capacity <= 0 {
			capacity = defaultCapacity
		}
		retail *= math.Pow(capacity/defaultCapacity, 0.6)
	}

	factor, ok := tierFactor[key.Tier]
	if !ok {
		factor = 1
	}
	retail = math.Round(retail*factor*100) / 100

	return model.PriceQuote{
		Key:        key,
		Retail:     retail,
		Wholesale:  math.Round(retail/1.35*100) / 100,
		Confidence: confidence,
		Source:     SourceStatic,
		FetchedAt:  now,
	}
}
