package engine

import (
	"fmt"
	"math"

	"github.com/sells-group/opterra/internal/model"
)

// facts is everything the rules, the projector and the scheduler reason
// over. It is built once per assessment and never mutated.
type facts struct {
	in        inputs
	p         Params
	stress    model.Stressors
	wear      aging
	curve     Curve
	failProb  float64
	health    int
	effective float64 // effective hardness, GPG
}

func (f facts) ceiling() float64 { return f.curve.Ceiling }

func (f facts) hasTank() bool { return f.in.fuel.HasTank() }

// worn reports whether bioAge has used up frac of the actuarial ceiling.
func (f facts) worn(frac float64) bool {
	return f.wear.bioAge >= f.ceiling()*frac
}

func (f facts) breach() bool {
	return f.in.leak && f.in.leakSource.IsBreach()
}

func (f facts) minorLeak() bool {
	return f.in.leak && !f.in.leakSource.IsBreach()
}

func (f facts) fittingLeak() bool {
	return f.in.leak && (f.in.leakSource == model.LeakFittingValve || f.in.leakSource == model.LeakDrainPan)
}

func (f facts) criticalPressure() bool { return f.in.psi > f.p.MaxPSI }

// failingPRV is critical pressure with a PRV installed.
func (f facts) failingPRV() bool { return f.criticalPressure() && f.in.hasPRV }

// expansionUnprotected reports a closed loop without a working expansion tank.
func (f facts) expansionUnprotected() bool {
	return f.in.closedLoop && f.in.expansion != model.ExpansionFunctional
}

// missingComponents reports code-mandated components that are absent.
func (f facts) missingComponents() bool {
	return !f.in.hasPRV || f.expansionUnprotected()
}

func (f facts) flushLocked() bool {
	return f.hasTank() && f.wear.sediment > f.p.SedimentLockout
}

func (f facts) sedimentDebt() bool {
	return f.hasTank() && f.wear.sediment > f.p.SedimentDebt
}

func (f facts) anodeDepleted() bool {
	return f.hasTank() && f.wear.shield <= 0
}

// descaleIntervalMonths is shorter in hard water.
func (f facts) descaleIntervalMonths() int {
	if f.effective > 7 {
		return 12
	}
	return 24
}

// descaleMonths is the months until the next descale; negative when overdue.
func (f facts) descaleMonths() int {
	return f.descaleIntervalMonths() - int(math.Round(f.in.ysDescale*12))
}

func (f facts) descaleOverdue() bool {
	return !f.hasTank() && f.descaleMonths() < 0
}

func (f facts) hybridService() bool {
	return f.in.filterDirty || f.in.drainBlocked
}

// severeExpiry is the margin at which an expired unit must go now.
func (f facts) severeExpiry() bool {
	return f.worn(1.5) || f.failProb >= 85
}

// findings lists the observations in a fixed order.
func (f facts) findings() []model.Finding {
	var out []model.Finding
	add := func(code string, sev model.Severity, format string, args ...any) {
		out = append(out, model.Finding{Code: code, Severity: sev, Detail: fmt.Sprintf(format, args...)})
	}

	switch {
	case f.breach():
		add(model.FindingBreach, model.SeverityCritical, "active leak from the %s", leakLabel(f.in.leakSource))
	case f.minorLeak():
		add(model.FindingLeak, model.SeverityHigh, "active leak from the %s", leakLabel(f.in.leakSource))
	}

	switch {
	case f.criticalPressure():
		add(model.FindingCriticalPressure, model.SeverityCritical, "house pressure %.0f PSI exceeds the %.0f PSI ceiling", f.in.psi, f.p.MaxPSI)
		if !f.in.hasPRV {
			add(model.FindingMissingPRV, model.SeverityHigh, "no pressure-reducing valve")
		}
	case f.in.psi > f.p.OptimalPSI:
		add(model.FindingHighPressure, model.SeverityMedium, "house pressure %.0f PSI is above the %.0f PSI optimum", f.in.psi, f.p.OptimalPSI)
	}

	if f.expansionUnprotected() {
		sev := model.SeverityHigh
		if f.in.expansion == model.ExpansionWaterlogged {
			sev = model.SeverityMedium
		}
		add(model.FindingExpansionTank, sev, "closed-loop system with %s expansion tank", f.in.expansion)
	}

	switch {
	case f.flushLocked():
		add(model.FindingSedimentLockout, model.SeverityHigh, "%.1f lbs of sediment; flushing could dislodge hardened scale", f.wear.sediment)
	case f.sedimentDebt():
		add(model.FindingSediment, model.SeverityMedium, "%.1f lbs of sediment", f.wear.sediment)
	}

	if f.anodeDepleted() {
		add(model.FindingAnodeDepleted, model.SeverityHigh, "anode exhausted %.1f years ago", -f.wear.shield)
	}
	if f.in.rust {
		add(model.FindingRust, model.SeverityMedium, "visible external corrosion")
	}

	if f.worn(1) {
		sev := model.SeverityHigh
		if f.severeExpiry() {
			sev = model.SeverityCritical
		}
		add(model.FindingAging, sev, "wear-adjusted age %.1f years against a %.0f year life", f.wear.bioAge, f.ceiling())
	}

	if f.effective > 10 {
		add(model.FindingHardWater, model.SeverityLow, "effective hardness %.1f GPG", f.effective)
	}
	if f.descaleOverdue() {
		add(model.FindingDescale, model.SeverityMedium, "heat exchanger last descaled %.1f years ago", f.in.ysDescale)
	}
	if f.in.filterDirty {
		add(model.FindingHybridFilter, model.SeverityLow, "heat-pump air filter is dirty")
	}
	if f.in.drainBlocked {
		add(model.FindingHybridDrain, model.SeverityMedium, "condensate drain is blocked")
	}
	if f.in.recirc && !f.in.recircControlled {
		add(model.FindingRecirc, model.SeverityLow, "recirculation pump runs continuously")
	}
	return out
}

func leakLabel(s model.LeakSource) string {
	switch s {
	case model.LeakTankBody:
		return "tank body"
	case model.LeakHeatExchanger:
		return "heat exchanger"
	case model.LeakFittingValve:
		return "fitting or valve"
	case model.LeakDrainPan:
		return "drain pan"
	default:
		return "unknown source"
	}
}
