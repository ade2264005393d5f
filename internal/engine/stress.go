package engine

import (
	"math"

	"github.com/sells-group/opterra/internal/model"
)

// stressor derives one independent multiplier (>= 1.0) from the inputs.
type stressor struct {
	name string
	fn   func(in inputs, p Params) float64
}

// stressors is the fixed fold order. The aging rate multiplies them in this
// order so floating-point results are reproducible.
var stressors = []stressor{
	{model.StressPressure, pressureStress},
	{model.StressChemical, chemicalStress},
	{model.StressCorrosion, corrosionStress},
	{model.StressThermal, thermalStress},
	{model.StressRecirc, recircStress},
}

func stressFactors(in inputs, p Params) model.Stressors {
	out := make(model.Stressors, len(stressors))
	for _, s := range stressors {
		out[s.name] = math.Max(1, s.fn(in, p))
	}
	return out
}

// agingRate is the naked aging rate: the product of all stressors.
func agingRate(s model.Stressors) float64 {
	rate := 1.0
	for _, st := range stressors {
		if v, ok := s[st.name]; ok {
			rate *= v
		}
	}
	return rate
}

func pressureStress(in inputs, p Params) float64 {
	m := 1.0
	switch {
	case in.psi > p.MaxPSI:
		m = 1 + (p.MaxPSI-p.OptimalPSI)*p.PressureSlope + (in.psi-p.MaxPSI)*p.PressureCriticalSlope
	case in.psi > p.OptimalPSI:
		m = 1 + (in.psi-p.OptimalPSI)*p.PressureSlope
	}
	// Nothing absorbs the spikes.
	if in.psi > p.OptimalPSI && !in.hasPRV && in.expansion != model.ExpansionFunctional {
		m *= p.SpikePenalty
	}
	return math.Min(m, p.PressureCap)
}

// effectiveHardness is the hardness the unit actually sees after softening.
// An undersized softener only takes the edge off.
func effectiveHardness(in inputs) float64 {
	if !in.softener {
		return in.gpg
	}
	if in.gpg <= in.softenerCapacity {
		return math.Min(in.gpg, 1)
	}
	return in.gpg * 0.5
}

func chemicalStress(in inputs, p Params) float64 {
	excess := math.Max(0, effectiveHardness(in)-p.HardnessBaseline)
	return math.Min(1+excess*p.HardnessSlope, p.ChemicalCap)
}

func corrosionStress(in inputs, p Params) float64 {
	if !in.fuel.HasTank() {
		return 1
	}
	budget, shield := shieldLife(in, p)
	if in.rust || shield <= 0 {
		return p.CorrosionMax
	}
	return 1 + p.CorrosionDepletion*(1-shield/budget)
}

func thermalStress(in inputs, p Params) float64 {
	if in.closedLoop && in.expansion != model.ExpansionFunctional {
		return p.ThermalPenalty
	}
	return 1
}

func recircStress(in inputs, p Params) float64 {
	if in.recirc && !in.recircControlled {
		return p.RecircPenalty
	}
	return 1
}
