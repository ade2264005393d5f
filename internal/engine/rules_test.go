package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/opterra/internal/model"
)

func withLeak(s model.Snapshot, src model.LeakSource) model.Snapshot {
	s.Condition.ActiveLeak = true
	s.Condition.LeakSource = src
	return s
}

// lockedYoung builds a tank buried in sediment from very hard water and
// heavy use, with a recent anode.
func lockedYoung(age float64) model.Snapshot {
	return model.Snapshot{
		Unit: model.UnitProfile{CalendarAge: age, FuelType: model.FuelGasTank},
		Environment: model.EnvironmentObservations{
			HousePSI:    f64(55),
			HardnessGPG: f64(30),
			Occupants:   6,
		},
		Condition: model.ConditionObservations{YearsSinceAnode: f64(1)},
	}
}

func TestRules_Verdicts(t *testing.T) {
	tankless := model.Snapshot{
		Unit:        model.UnitProfile{CalendarAge: 4, FuelType: model.FuelTanklessGas},
		Environment: model.EnvironmentObservations{HousePSI: f64(55), HardnessGPG: f64(10)},
		Condition:   model.ConditionObservations{YearsSinceDescale: f64(3)},
	}
	hybrid := model.Snapshot{
		Unit:        model.UnitProfile{CalendarAge: 2, FuelType: model.FuelHybrid},
		Environment: model.EnvironmentObservations{HousePSI: f64(55), HardnessGPG: f64(3)},
		Condition: model.ConditionObservations{
			FilterDirty:     true,
			YearsSinceFlush: f64(0.5),
		},
	}
	anode := model.Snapshot{
		Unit:        model.UnitProfile{CalendarAge: 7, FuelType: model.FuelGasTank},
		Environment: model.EnvironmentObservations{HousePSI: f64(55), HardnessGPG: f64(3)},
		Condition:   model.ConditionObservations{YearsSinceFlush: f64(1)},
	}
	monitor := model.Snapshot{
		Unit:        model.UnitProfile{CalendarAge: 8, FuelType: model.FuelGasTank},
		Environment: model.EnvironmentObservations{HousePSI: f64(55), HardnessGPG: f64(3)},
		Condition: model.ConditionObservations{
			YearsSinceFlush: f64(0.5),
			YearsSinceAnode: f64(1),
		},
	}
	violation := func(age float64) model.Snapshot {
		return model.Snapshot{
			Unit:        model.UnitProfile{CalendarAge: age, FuelType: model.FuelGasTank},
			Environment: model.EnvironmentObservations{HousePSI: f64(90)},
		}
	}
	failingPRV := nominal()
	failingPRV.Environment.HousePSI = f64(90)
	failingPRV.Environment.HasPRV = true
	failingPRV.Environment.ExpansionTank = model.ExpansionFunctional

	waterlogged := nominal()
	waterlogged.Environment.HasPRV = true
	waterlogged.Environment.ExpansionTank = model.ExpansionWaterlogged

	// Hard water and a big household, never flushed or re-anoded.
	pastLife := model.Snapshot{
		Unit: model.UnitProfile{CalendarAge: 14, FuelType: model.FuelGasTank},
		Environment: model.EnvironmentObservations{
			HousePSI:    f64(55),
			HardnessGPG: f64(25),
			Occupants:   5,
		},
	}

	rusty := nominal()
	rusty.Condition.VisualRust = true
	rusty.Condition.YearsSinceFlush = f64(1)

	tests := []struct {
		name       string
		s          model.Snapshot
		rule       string
		action     model.Action
		badge      model.Badge
		repairable bool
	}{
		{"tank body breach", withLeak(nominal(), model.LeakTankBody), RuleContainmentBreach, model.ActionReplaceNow, model.BadgeCritical, false},
		{"heat exchanger breach", withLeak(tankless, model.LeakHeatExchanger), RuleContainmentBreach, model.ActionReplaceNow, model.BadgeCritical, false},
		{"breach beats code violation", withLeak(violation(2), model.LeakTankBody), RuleContainmentBreach, model.ActionReplaceNow, model.BadgeCritical, false},
		{"code violation on young unit", violation(2), RuleCodeViolation, model.ActionRepair, model.BadgeCritical, true},
		{"code violation on worn unit", violation(9), RuleCodeViolation, model.ActionReplaceNow, model.BadgeCritical, false},
		{"lockout on young unit", lockedYoung(5), RuleSedimentLockout, model.ActionMonitor, model.BadgeWarning, false},
		{"lockout on aging unit", lockedYoung(7), RuleSedimentLockout, model.ActionReplaceSoon, model.BadgeWarning, false},
		{"lockout past service life", pastLife, RuleSedimentLockout, model.ActionReplaceNow, model.BadgeCritical, false},
		{"expired", expiring(), RuleActuarialExpiry, model.ActionReplaceSoon, model.BadgeWarning, false},
		{"expired with fitting leak", withLeak(expiring(), model.LeakFittingValve), RuleActuarialExpiry, model.ActionReplaceSoon, model.BadgeWarning, true},
		{"fitting leak", withLeak(nominal(), model.LeakFittingValve), RuleInfrastructureRepair, model.ActionRepair, model.BadgeCaution, true},
		{"drain pan leak", withLeak(nominal(), model.LeakDrainPan), RuleInfrastructureRepair, model.ActionRepair, model.BadgeCaution, true},
		{"unknown leak", withLeak(nominal(), model.LeakUnknown), RuleInfrastructureRepair, model.ActionRepair, model.BadgeCaution, true},
		{"failing prv", failingPRV, RuleInfrastructureRepair, model.ActionRepair, model.BadgeCaution, true},
		{"waterlogged expansion tank", waterlogged, RuleInfrastructureRepair, model.ActionRepair, model.BadgeCaution, true},
		{"anode depleted", anode, RuleMaintenanceDebt, model.ActionMaintain, model.BadgeCaution, true},
		{"descale overdue", tankless, RuleMaintenanceDebt, model.ActionMaintain, model.BadgeCaution, true},
		{"hybrid filter", hybrid, RuleMaintenanceDebt, model.ActionMaintain, model.BadgeCaution, true},
		{"rust", rusty, RuleMaintenanceDebt, model.ActionMaintain, model.BadgeCaution, true},
		{"healthy", nominal(), RuleHealthy, model.ActionPass, model.BadgeOptimal, true},
		{"monitor", monitor, RuleMonitor, model.ActionMonitor, model.BadgeInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Assess(tt.s).Verdict
			assert.Equal(t, tt.rule, v.RuleID)
			assert.Equal(t, tt.action, v.Action)
			assert.Equal(t, tt.badge, v.Badge)
			assert.Equal(t, tt.repairable, v.Repairable)
			assert.NotEmpty(t, v.Reason)
		})
	}
}

func TestRules_FittingLeakNeverForcesReplacement(t *testing.T) {
	for _, age := range []float64{0, 2, 4, 6} {
		s := withLeak(nominal(), model.LeakFittingValve)
		s.Unit.CalendarAge = age
		v := Assess(s).Verdict
		assert.NotEqual(t, model.ActionReplaceNow, v.Action, "age %.0f", age)
		assert.NotEqual(t, RuleContainmentBreach, v.RuleID)
	}
}

func TestRules_TankBodyOnTanklessIsBreach(t *testing.T) {
	s := model.Snapshot{
		Unit:        model.UnitProfile{CalendarAge: 3, FuelType: model.FuelTanklessElectric},
		Environment: model.EnvironmentObservations{HousePSI: f64(55), HardnessGPG: f64(3)},
	}
	v := Assess(withLeak(s, model.LeakTankBody)).Verdict
	assert.Equal(t, RuleContainmentBreach, v.RuleID)
	assert.Equal(t, model.ActionReplaceNow, v.Action)
	assert.Equal(t, model.BadgeCritical, v.Badge)
	assert.False(t, v.Repairable)
	assert.Contains(t, v.Reason, "heat exchanger")
}

func TestRules_HighPressureWithoutPRVIsCodeViolation(t *testing.T) {
	// Open loop, so the expansion tank is not required; the missing PRV is.
	for _, psi := range []float64{81, 95, 140} {
		s := nominal()
		s.Environment.HousePSI = f64(psi)
		f := factsFor(s)
		assert.False(t, infrastructureDebt(f), "psi %.0f", psi)

		v := Assess(s).Verdict
		assert.Equal(t, RuleCodeViolation, v.RuleID, "psi %.0f", psi)
		assert.Contains(t, v.Reason, "pressure-reducing valve")
	}
}

func TestEvaluate_FallsBackWhenNothingMatches(t *testing.T) {
	never := []rule{{"never", func(facts) bool { return false }, decideMonitor}}
	v := evaluate(never, factsFor(nominal()))
	assert.Equal(t, RuleMonitor, v.RuleID)
	assert.Equal(t, model.ActionMonitor, v.Action)
}

func TestEvaluate_ReplaceNowNeverRepairable(t *testing.T) {
	sloppy := []rule{{"sloppy", func(facts) bool { return true }, func(facts) model.Verdict {
		return model.Verdict{Action: model.ActionReplaceNow, Repairable: true}
	}}}
	v := evaluate(sloppy, factsFor(nominal()))
	assert.Equal(t, "sloppy", v.RuleID)
	assert.False(t, v.Repairable)
}

func TestDefaultRules_Order(t *testing.T) {
	var ids []string
	for _, r := range defaultRules() {
		ids = append(ids, r.id)
	}
	assert.Equal(t, []string{
		RuleContainmentBreach,
		RuleCodeViolation,
		RuleSedimentLockout,
		RuleActuarialExpiry,
		RuleInfrastructureRepair,
		RuleMaintenanceDebt,
		RuleHealthy,
		RuleMonitor,
	}, ids)
}
