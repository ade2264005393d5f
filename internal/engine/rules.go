package engine

import (
	"fmt"

	"github.com/sells-group/opterra/internal/model"
)

// Rule IDs, in priority order.
const (
	RuleContainmentBreach    = "containment_breach"
	RuleCodeViolation        = "code_violation"
	RuleSedimentLockout      = "sediment_lockout"
	RuleActuarialExpiry      = "actuarial_expiry"
	RuleInfrastructureRepair = "infrastructure_repair"
	RuleMaintenanceDebt      = "maintenance_debt"
	RuleHealthy              = "healthy"
	RuleMonitor              = "monitor"
)

// rule is one entry of the verdict table. decide is only called when guard
// matched.
type rule struct {
	id     string
	guard  func(f facts) bool
	decide func(f facts) model.Verdict
}

// defaultRules is the priority-ordered verdict table. The first guard that
// matches decides; a later rule never overrides an earlier one. The final
// rule always matches.
func defaultRules() []rule {
	return []rule{
		{RuleContainmentBreach, facts.breach, decideBreach},
		{RuleCodeViolation, codeViolation, decideCodeViolation},
		{RuleSedimentLockout, facts.flushLocked, decideSedimentLockout},
		{RuleActuarialExpiry, func(f facts) bool { return f.worn(1) }, decideExpiry},
		{RuleInfrastructureRepair, infrastructureDebt, decideInfrastructure},
		{RuleMaintenanceDebt, maintenanceDebt, decideMaintenance},
		{RuleHealthy, healthy, decideHealthy},
		{RuleMonitor, func(facts) bool { return true }, decideMonitor},
	}
}

// evaluate runs the table and stamps the winning rule's ID on the verdict.
func evaluate(rules []rule, f facts) model.Verdict {
	for _, r := range rules {
		if r.guard(f) {
			v := r.decide(f)
			v.RuleID = r.id
			if v.Action == model.ActionReplaceNow {
				v.Repairable = false
			}
			return v
		}
	}
	return model.Verdict{Action: model.ActionMonitor, Badge: model.BadgeInfo, RuleID: RuleMonitor}
}

func decideBreach(f facts) model.Verdict {
	return model.Verdict{
		Action: model.ActionReplaceNow,
		Badge:  model.BadgeCritical,
		Reason: fmt.Sprintf("Active leak from the %s. The pressure vessel has failed and can not be repaired.", leakLabel(f.in.leakSource)),
	}
}

func codeViolation(f facts) bool {
	return f.criticalPressure() && f.missingComponents()
}

// wornForViolation is the wear level at which fixing the plumbing around the
// unit is no longer worth it.
func (f facts) wornForViolation() bool {
	return f.worn(0.8) || f.failProb >= 40
}

func decideCodeViolation(f facts) model.Verdict {
	missing := missingLabel(f)
	if f.wornForViolation() {
		return model.Verdict{
			Action: model.ActionReplaceNow,
			Badge:  model.BadgeCritical,
			Reason: fmt.Sprintf("House pressure is %.0f PSI with no %s, and the unit is too worn to protect. Replace it and bring the system to code.", f.in.psi, missing),
		}
	}
	return model.Verdict{
		Action:     model.ActionRepair,
		Badge:      model.BadgeCritical,
		Reason:     fmt.Sprintf("House pressure is %.0f PSI with no %s. Install it now to stop the damage.", f.in.psi, missing),
		Repairable: true,
	}
}

func missingLabel(f facts) string {
	switch {
	case !f.in.hasPRV && f.expansionUnprotected():
		return "pressure-reducing valve or working expansion tank"
	case !f.in.hasPRV:
		return "pressure-reducing valve"
	default:
		return "working expansion tank"
	}
}

func decideSedimentLockout(f facts) model.Verdict {
	reason := fmt.Sprintf("About %.0f lbs of hardened sediment. Flushing now could break it loose and open a leak.", f.wear.sediment)
	switch {
	case f.severeExpiry():
		return model.Verdict{Action: model.ActionReplaceNow, Badge: model.BadgeCritical, Reason: reason + " The unit is well past its service life."}
	case f.worn(0.6):
		return model.Verdict{Action: model.ActionReplaceSoon, Badge: model.BadgeWarning, Reason: reason + " Plan the replacement."}
	default:
		return model.Verdict{Action: model.ActionMonitor, Badge: model.BadgeWarning, Reason: reason + " Leave it in place and watch for leaks."}
	}
}

func decideExpiry(f facts) model.Verdict {
	if f.severeExpiry() {
		return model.Verdict{
			Action: model.ActionReplaceNow,
			Badge:  model.BadgeCritical,
			Reason: fmt.Sprintf("Wear-adjusted age of %.1f years is far past the %.0f year service life (%.0f%% failure risk).", f.wear.bioAge, f.ceiling(), f.failProb),
		}
	}
	v := model.Verdict{
		Action: model.ActionReplaceSoon,
		Badge:  model.BadgeWarning,
		Reason: fmt.Sprintf("Wear-adjusted age of %.1f years has reached the %.0f year service life.", f.wear.bioAge, f.ceiling()),
	}
	if f.fittingLeak() {
		v.Repairable = true
		v.Reason += " Fix the leaking " + leakLabel(f.in.leakSource) + " now and budget for the replacement."
	}
	return v
}

// infrastructureDebt never sees critical pressure without a PRV; the code
// violation rule claims that first.
func infrastructureDebt(f facts) bool {
	return f.minorLeak() || f.failingPRV() || f.expansionUnprotected()
}

func decideInfrastructure(f facts) model.Verdict {
	var reason string
	switch {
	case f.minorLeak():
		reason = fmt.Sprintf("Leak at the %s. The tank itself is sound; repair the connection.", leakLabel(f.in.leakSource))
	case f.failingPRV():
		reason = fmt.Sprintf("House pressure is %.0f PSI despite a pressure-reducing valve. The valve is failing.", f.in.psi)
	default:
		reason = fmt.Sprintf("Closed-loop system with a %s expansion tank. Thermal expansion is stressing the tank.", f.in.expansion)
	}
	return model.Verdict{Action: model.ActionRepair, Badge: model.BadgeCaution, Reason: reason, Repairable: true}
}

func maintenanceDebt(f facts) bool {
	return f.anodeDepleted() || f.sedimentDebt() || f.descaleOverdue() || f.hybridService() || f.in.rust
}

func decideMaintenance(f facts) model.Verdict {
	var reason string
	switch {
	case f.anodeDepleted():
		reason = "The anode rod is used up and the tank is corroding. Replace the anode."
	case f.sedimentDebt():
		reason = fmt.Sprintf("About %.0f lbs of sediment. Flush the tank.", f.wear.sediment)
	case f.descaleOverdue():
		reason = "Scale is building in the heat exchanger. Descale the unit."
	case f.hybridService():
		reason = "The heat pump needs its filter cleaned or condensate drain cleared."
	default:
		reason = "Visible corrosion on the tank. Inspect the anode and fittings."
	}
	return model.Verdict{Action: model.ActionMaintain, Badge: model.BadgeCaution, Reason: reason, Repairable: true}
}

func healthy(f facts) bool {
	return f.failProb < 15 && f.health >= 75
}

func decideHealthy(f facts) model.Verdict {
	return model.Verdict{
		Action:     model.ActionPass,
		Badge:      model.BadgeOptimal,
		Reason:     fmt.Sprintf("No significant findings. Health score %d.", f.health),
		Repairable: true,
	}
}

func decideMonitor(f facts) model.Verdict {
	return model.Verdict{
		Action:     model.ActionMonitor,
		Badge:      model.BadgeInfo,
		Reason:     fmt.Sprintf("No urgent findings. %.0f%% failure risk at a wear-adjusted age of %.1f years.", f.failProb, f.wear.bioAge),
		Repairable: true,
	}
}
