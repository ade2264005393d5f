// Package engine computes the forensic risk and lifecycle assessment of a
// water heater from a single observation snapshot.
//
// The pipeline runs strictly downward: normalize, stress factors, wear,
// failure probability, health score, verdict, financial projection and
// maintenance schedule. An Engine holds only its immutable Params. It does
// no I/O, never reads the clock and keeps no state between calls, so the
// same snapshot always produces the same Result.
package engine

import (
	"github.com/sells-group/opterra/internal/model"
)

// Engine evaluates snapshots against a fixed set of Params.
type Engine struct {
	p     Params
	rules []rule
}

// New returns an Engine tuned by p.
func New(p Params) *Engine {
	return &Engine{p: p, rules: defaultRules()}
}

// Params returns the tuning the engine was built with.
func (e *Engine) Params() Params { return e.p }

// Assess runs the full pipeline. It never fails: unknown or out-of-range
// observations are defaulted and the last rule always produces a verdict.
func (e *Engine) Assess(s model.Snapshot) model.Result {
	f := e.facts(s)
	v := evaluate(e.rules, f)

	return model.Result{
		Metrics: model.Metrics{
			CalendarAge:   f.in.age,
			BioAge:        f.wear.bioAge,
			FailProb:      f.failProb,
			HealthScore:   f.health,
			Stressors:     f.stress,
			AgingRate:     f.wear.rate,
			ShieldLife:    f.wear.shield,
			ExposureYears: f.wear.exposure,
			SedimentLbs:   f.wear.sediment,
			SedimentRate:  f.wear.sedimentRate,
			FlushLocked:   f.flushLocked(),
		},
		Verdict:     v,
		Financial:   project(f, v),
		Maintenance: schedule(f),
		Findings:    f.findings(),
	}
}

func (e *Engine) facts(s model.Snapshot) facts {
	in := normalize(s, e.p)
	stress := stressFactors(in, e.p)
	w := wear(in, stress, e.p)
	failProb := e.p.FailureProbability(in.fuel, w.bioAge)

	return facts{
		in:        in,
		p:         e.p,
		stress:    stress,
		wear:      w,
		curve:     e.p.curve(in.fuel),
		failProb:  failProb,
		health:    HealthScore(failProb, stress),
		effective: effectiveHardness(in),
	}
}

var defaultEngine = New(DefaultParams())

// Assess evaluates s with DefaultParams.
func Assess(s model.Snapshot) model.Result {
	return defaultEngine.Assess(s)
}
