package guidance

import "github.com/sells-group/opterra/internal/model"

type fallbackKey struct {
	code     string
	severity model.Severity
}

// Severity-specific wording. Codes missing here use codeFallback.
var severityFallback = map[fallbackKey]string{
	{model.FindingAging, model.SeverityCritical}:       "This heater is well past the age where tanks typically fail and is showing wear on top of that. Plan the replacement now rather than waiting for a leak.",
	{model.FindingAging, model.SeverityHigh}:           "This heater has reached the end of its expected service life. It may keep running for a while, but start budgeting for a replacement.",
	{model.FindingExpansionTank, model.SeverityHigh}:   "Your plumbing is a closed system with no working expansion tank, so every heating cycle spikes the pressure inside the heater. A thermal expansion tank absorbs that surge.",
	{model.FindingExpansionTank, model.SeverityMedium}: "The expansion tank is waterlogged and no longer absorbs pressure surges. Replacing it is inexpensive and protects the heater.",
}

var codeFallback = map[string]string{
	model.FindingBreach:           "Water is escaping from the tank itself. A breached tank cannot be repaired; shut off the cold supply and arrange a replacement.",
	model.FindingLeak:             "There is an active leak from a serviceable part. A plumber can usually fix fittings and valves without replacing the heater.",
	model.FindingCriticalPressure: "Household water pressure is above the plumbing code limit. Sustained high pressure shortens heater life and strains every fixture in the home.",
	model.FindingHighPressure:     "Water pressure is higher than ideal. It is within code but adds wear over time; a pressure-reducing valve brings it down.",
	model.FindingMissingPRV:       "There is no pressure-reducing valve on the main line. Installing one is the usual fix for high house pressure.",
	model.FindingSedimentLockout:  "So much sediment has built up that flushing now risks breaking hardened scale loose and clogging the drain valve. Flushing is no longer recommended for this unit.",
	model.FindingSediment:         "Sediment has collected in the bottom of the tank. A flush removes it and restores efficiency.",
	model.FindingAnodeDepleted:    "The sacrificial anode rod is used up, so the tank steel is now corroding. Replacing the anode slows that down if the tank is otherwise sound.",
	model.FindingRust:             "There is visible rust on the heater. Surface rust is cosmetic, but rust at seams or fittings often means corrosion inside.",
	model.FindingHardWater:        "The water is hard, which speeds up scale and sediment. A softener or more frequent flushing helps.",
	model.FindingDescale:          "The tankless heat exchanger is due for descaling. Scale buildup reduces flow and can trigger error shutdowns.",
	model.FindingHybridFilter:     "The heat-pump air filter is dirty. Cleaning it keeps the unit efficient and takes a few minutes.",
	model.FindingHybridDrain:      "The condensate drain is blocked. Clear it to prevent water damage and error codes.",
	model.FindingRecirc:           "A recirculation pump runs around the clock. A timer or demand control cuts wear and energy use.",
}

const genericFallback = "A technician can walk you through this finding and what it means for your water heater."

// Fallback returns the canned explanation for a finding.
func Fallback(f model.Finding) string {
	if s, ok := severityFallback[fallbackKey{f.Code, f.Severity}]; ok {
		return s
	}
	if s, ok := codeFallback[f.Code]; ok {
		return s
	}
	return genericFallback
}
