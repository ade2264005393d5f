package engine

import (
	"math"

	"github.com/sells-group/opterra/internal/model"
)

const grainsPerPound = 7000

// aging is the output of the wear model.
type aging struct {
	budget       float64 // anode budget, years
	shield       float64 // remaining shield life, negative when overdue
	exposure     float64 // years aged without corrosion protection
	rate         float64 // naked aging rate
	bioAge       float64
	sedimentRate float64 // lbs/year
	sediment     float64 // lbs
}

// shieldLife returns the anode budget and what is left of it. Softened water
// eats anodes faster. The remainder is reported negative once exhausted so
// callers can tell how overdue the replacement is.
func shieldLife(in inputs, p Params) (budget, shield float64) {
	budget = p.AnodeBudget
	if in.softener {
		budget = p.AnodeBudgetSoftened
	}
	return budget, budget - in.ysAnode
}

// exposureYears counts the years the tank spent without a working anode:
// the overrun on the current anode plus any overrun on the one it replaced.
// Visible rust means the steel is already corroding, so it implies at least
// p.RustExposure years regardless of the anode record. Tankless units have
// no shield and are exposed for their whole life.
func exposureYears(in inputs, budget float64, p Params) float64 {
	if !in.fuel.HasTank() {
		return in.age
	}
	exposure := math.Max(0, in.ysAnode-budget)
	if in.ysAnode < in.age {
		exposure += math.Max(0, (in.age-in.ysAnode)-budget)
	}
	if in.rust {
		exposure = math.Max(exposure, p.RustExposure)
	}
	return math.Min(exposure, in.age)
}

// sedimentRate is the yearly sediment accrual in pounds.
func sedimentRate(in inputs, p Params) float64 {
	if !in.fuel.HasTank() {
		return 0
	}
	gallons := float64(in.occupants) * p.GallonsPerOccupant * 365
	return gallons * effectiveHardness(in) / grainsPerPound * p.Precipitation[in.fuel]
}

func wear(in inputs, s model.Stressors, p Params) aging {
	budget, shield := shieldLife(in, p)
	a := aging{
		budget:   budget,
		shield:   shield,
		exposure: exposureYears(in, budget, p),
		rate:     agingRate(s),
	}
	// Protected years age at 1.0x, exposed years at the naked rate.
	a.bioAge = (in.age - a.exposure) + a.exposure*a.rate
	if a.bioAge < in.age {
		a.bioAge = in.age
	}

	a.sedimentRate = sedimentRate(in, p)
	// The last flush halved whatever had built up before it.
	a.sediment = 0.5*a.sedimentRate*(in.age-in.ysFlush) + a.sedimentRate*in.ysFlush
	return a
}

// projectBioAge returns the bioAge t years from now, assuming nothing is
// serviced in between.
func (a aging) projectBioAge(in inputs, t float64) float64 {
	if in.fuel.HasTank() && a.shield > 0 {
		if t <= a.shield {
			return a.bioAge + t
		}
		return a.bioAge + a.shield + (t-a.shield)*a.rate
	}
	return a.bioAge + t*a.rate
}

// yearsUntil is the inverse of projectBioAge: calendar years until the unit
// reaches the given bioAge. Zero when already there.
func (a aging) yearsUntil(in inputs, target float64) float64 {
	remaining := target - a.bioAge
	if remaining <= 0 {
		return 0
	}
	if in.fuel.HasTank() && a.shield > 0 {
		if remaining <= a.shield {
			return remaining
		}
		return a.shield + (remaining-a.shield)/a.rate
	}
	return remaining / a.rate
}
