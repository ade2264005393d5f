package engine

import (
	"math"

	"github.com/sells-group/opterra/internal/model"
)

const maxTargetMonths = 120

// project builds the replacement budget and the repair-vs-replace forecast.
func project(f facts, v model.Verdict) model.FinancialProjection {
	fp := model.FinancialProjection{
		ReplacementCost: round2(f.in.replacementCost),
		HorizonYears:    f.p.HorizonYears,
	}

	fp.MonthsUntilTarget = targetMonths(f, v)
	fp.Urgency = budgetUrgency(v, fp.MonthsUntilTarget)
	fp.MonthlySavings = round2(f.in.replacementCost / float64(max(fp.MonthsUntilTarget, 1)))
	if !f.in.asOf.IsZero() {
		fp.TargetDate = f.in.asOf.AddDate(0, fp.MonthsUntilTarget, 0)
	}

	fp.RepairPath, fp.ReplacePath = forecast(f)
	fp.BreakEvenYear = breakEven(fp.RepairPath, fp.ReplacePath)
	return fp
}

// targetMonths is how long the owner has to save for the replacement. A
// unit past its ceiling gets at most a year, less the further past it is.
func targetMonths(f facts, v model.Verdict) int {
	if v.Action == model.ActionReplaceNow {
		return 0
	}
	if f.worn(1) {
		margin := f.wear.bioAge - f.ceiling()
		m := math.Round(12 * (1 - margin/(0.5*f.ceiling())))
		return int(clamp(m, 1, 12))
	}
	m := int(math.Round(f.wear.yearsUntil(f.in, f.ceiling()) * 12))
	if v.Action == model.ActionReplaceSoon {
		m = min(m, 24)
	}
	return max(1, min(m, maxTargetMonths))
}

func budgetUrgency(v model.Verdict, months int) model.Urgency {
	switch {
	case v.Action == model.ActionReplaceNow:
		return model.UrgencyImmediate
	case v.Action == model.ActionReplaceSoon || months <= 12:
		return model.UrgencyHigh
	case months <= 36:
		return model.UrgencyModerate
	default:
		return model.UrgencyLow
	}
}

// repairNow is what keeping the unit costs today.
func repairNow(f facts) float64 {
	c := f.p.Costs
	var total float64
	if f.fittingLeak() {
		total += c.FittingRepair
	}
	if f.criticalPressure() {
		total += c.PRVInstall
	}
	if f.expansionUnprotected() {
		total += c.ExpansionTank
	}
	return total
}

// routineYear is the service bill for year y (1-based) in today's dollars.
func routineYear(f facts, y int) float64 {
	c := f.p.Costs
	var total float64
	if f.hasTank() {
		if !f.flushLocked() {
			total += c.Flush
		}
		total += c.Anode * float64(anodeEvents(f, y))
	} else {
		total += c.Descale * 12 / float64(f.descaleIntervalMonths())
	}
	if f.in.fuel == model.FuelHybrid {
		total += c.HybridFilter + c.HybridDrain
	}
	if f.in.softener && f.in.carbonFilter {
		total += c.CarbonFilter
	}
	return total
}

// anodeEvents counts anode swaps falling in year y. The first is due when
// the shield runs out, then once per budget.
func anodeEvents(f facts, y int) int {
	if f.wear.budget <= 0 {
		return 0
	}
	n := 0
	for t := math.Max(f.wear.shield, 0); t < float64(y); t += f.wear.budget {
		if t >= float64(y-1) {
			n++
		}
	}
	return n
}

// expectedRepair is the probability-weighted repair bill for year y.
func expectedRepair(f facts, y int) float64 {
	bio := f.wear.projectBioAge(f.in, float64(y))
	cost := f.p.FailureProbability(f.in.fuel, bio) / 100 * f.p.Costs.MajorRepair
	if bio >= f.ceiling() {
		cost *= 1.5
	}
	return cost
}

// forecast walks both paths forward. Entries are cumulative and index 0 is
// today.
func forecast(f facts) (repair, replace []float64) {
	h := f.p.HorizonYears
	repair = make([]float64, h+1)
	replace = make([]float64, h+1)

	rc, pc := repairNow(f), f.in.replacementCost
	repair[0], replace[0] = round2(rc), round2(pc)

	for y := 1; y <= h; y++ {
		inflate := math.Pow(1+f.p.Inflation, float64(y))
		rc += (routineYear(f, y) + expectedRepair(f, y)) * inflate
		if y == h {
			rc += f.in.replacementCost * inflate
		}
		pc += f.p.Costs.Upkeep * inflate
		repair[y], replace[y] = round2(rc), round2(pc)
	}
	return repair, replace
}

// breakEven is the first year the repair path costs at least as much as the
// replace path, or 0 when it never does.
func breakEven(repair, replace []float64) int {
	for y := 1; y < len(repair) && y < len(replace); y++ {
		if repair[y] >= replace[y] {
			return y
		}
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
