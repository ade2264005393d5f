package engine

import (
	"math"

	"github.com/sells-group/opterra/internal/model"
)

// FailureProbability maps a bioAge onto the logistic failure curve of the fuel
// type. The result is a percentage rounded to one decimal, monotonically
// non-decreasing in bioAge and never above FailCap.
func (p Params) FailureProbability(fuel model.FuelType, bioAge float64) float64 {
	c := p.curve(fuel)
	v := p.FailCap / (1 + math.Exp(-c.K*(bioAge-c.Mid)))
	return math.Min(math.Round(v*10)/10, p.FailCap)
}

// HealthScore folds failure probability and the dominant stressor into a
// 0-100 triage number. Higher is healthier.
func HealthScore(failProb float64, s model.Stressors) int {
	stressPct := clamp(s.Max()-1, 0, 1) * 100
	v := 100 - 0.75*failProb - 0.25*stressPct
	return int(math.Round(clamp(v, 0, 100)))
}
