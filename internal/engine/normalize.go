package engine

import (
	"math"
	"time"

	"github.com/sells-group/opterra/internal/model"
)

const (
	maxCalendarAge   = 50
	defaultPSI       = 60
	minPSI           = 20
	maxPSI           = 200
	maxHardness      = 60
	defaultOccupants = 3
	maxOccupants     = 12
	defaultCapacity  = 50
)

// inputs is a fully defaulted and clamped snapshot. Nothing downstream of
// normalize has to care about missing or nonsensical values.
type inputs struct {
	fuel     model.FuelType
	age      float64
	capacity float64
	location model.Location

	psi              float64
	gpg              float64
	hasPRV           bool
	expansion        model.ExpansionTankStatus
	closedLoop       bool
	recirc           bool
	recircControlled bool
	softener         bool
	softenerCapacity float64
	carbonFilter     bool
	occupants        int

	leak         bool
	leakSource   model.LeakSource
	rust         bool
	ysFlush      float64
	ysAnode      float64
	ysDescale    float64
	ysCarbon     float64
	filterDirty  bool
	drainBlocked bool

	replacementCost float64
	asOf            time.Time
}

// normalize validates and defaults a raw snapshot. It never fails: unknown
// values fall back to a baseline so the engine always reaches a verdict.
func normalize(s model.Snapshot, p Params) inputs {
	fuel := s.Unit.FuelType
	if !fuel.Known() {
		fuel = model.ParseFuelType(string(fuel))
	}

	in := inputs{
		fuel:     fuel,
		age:      clamp(finite(s.Unit.CalendarAge, 0), 0, maxCalendarAge),
		location: s.Unit.Location,

		hasPRV:           s.Environment.HasPRV,
		recirc:           s.Environment.HasRecircPump,
		recircControlled: s.Environment.HasRecircPump && s.Environment.RecircControlled,
		softener:         s.Environment.HasSoftener,
		carbonFilter:     s.Environment.HasCarbonFilter,

		rust: s.Condition.VisualRust,
		asOf: s.AsOf,
	}

	in.capacity = finite(s.Unit.CapacityGallons, 0)
	if in.capacity <= 0 {
		in.capacity = 0
		if fuel.HasTank() {
			in.capacity = defaultCapacity
		}
	}

	in.psi = optional(s.Environment.HousePSI, defaultPSI)
	if in.psi <= 0 {
		in.psi = defaultPSI
	}
	in.psi = clamp(in.psi, minPSI, maxPSI)

	in.gpg = optional(s.Environment.HardnessGPG, p.DefaultHardness)
	if in.gpg < 0 {
		in.gpg = p.DefaultHardness
	}
	in.gpg = clamp(in.gpg, 0, maxHardness)

	in.softenerCapacity = optional(s.Environment.SoftenerCapacityGPG, p.DefaultSoftenerCapacity)
	if in.softenerCapacity <= 0 {
		in.softenerCapacity = p.DefaultSoftenerCapacity
	}

	switch s.Environment.ExpansionTank {
	case model.ExpansionFunctional, model.ExpansionWaterlogged:
		in.expansion = s.Environment.ExpansionTank
	default:
		in.expansion = model.ExpansionMissing
	}

	// A PRV or a recirculation loop closes the system just as surely as a
	// check valve the homeowner knows about.
	in.closedLoop = s.Environment.ClosedLoop || s.Environment.HasPRV || s.Environment.HasRecircPump

	in.occupants = s.Environment.Occupants
	if in.occupants <= 0 {
		in.occupants = defaultOccupants
	}
	if in.occupants > maxOccupants {
		in.occupants = maxOccupants
	}

	if s.Condition.ActiveLeak {
		in.leak = true
		switch s.Condition.LeakSource {
		case model.LeakTankBody, model.LeakHeatExchanger, model.LeakFittingValve, model.LeakDrainPan:
			in.leakSource = s.Condition.LeakSource
		default:
			in.leakSource = model.LeakUnknown
		}
		// A tankless unit's only pressure vessel is its heat exchanger.
		if in.leakSource == model.LeakTankBody && !fuel.HasTank() {
			in.leakSource = model.LeakHeatExchanger
		}
	}

	in.ysFlush = yearsSince(s.Condition.YearsSinceFlush, in.age)
	in.ysAnode = yearsSince(s.Condition.YearsSinceAnode, in.age)
	in.ysDescale = yearsSince(s.Condition.YearsSinceDescale, in.age)
	in.ysCarbon = yearsSince(s.Condition.YearsSinceCarbonFilter, in.age)

	if fuel == model.FuelHybrid {
		in.filterDirty = s.Condition.FilterDirty
		in.drainBlocked = s.Condition.DrainBlocked
	}

	in.replacementCost = optional(s.ReplacementCost, 0)
	if in.replacementCost <= 0 {
		in.replacementCost = p.FallbackCost[fuel]
	}

	return in
}

// yearsSince resolves a service interval. Never serviced means the whole
// life of the unit; an interval can not exceed the unit's age.
func yearsSince(v *float64, age float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return age
	}
	return clamp(*v, 0, age)
}

func optional(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return finite(*v, def)
}

func finite(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
