package model

// ExpansionTankStatus is the condition of the thermal expansion tank.
type ExpansionTankStatus string

const (
	ExpansionFunctional  ExpansionTankStatus = "functional"
	ExpansionWaterlogged ExpansionTankStatus = "waterlogged"
	ExpansionMissing     ExpansionTankStatus = "missing"
)

// LeakSource is where an active leak originates.
type LeakSource string

const (
	LeakNone          LeakSource = ""
	LeakTankBody      LeakSource = "tank_body"
	LeakHeatExchanger LeakSource = "heat_exchanger"
	LeakFittingValve  LeakSource = "fitting_valve"
	LeakDrainPan      LeakSource = "drain_pan"
	LeakUnknown       LeakSource = "unknown"
)

// EnvironmentObservations describes the plumbing system around the unit.
// Pointer fields are optional; nil means "not measured".
type EnvironmentObservations struct {
	HousePSI            *float64            `json:"house_psi,omitempty" yaml:"house_psi"`
	HardnessGPG         *float64            `json:"hardness_gpg,omitempty" yaml:"hardness_gpg"`
	HasPRV              bool                `json:"has_prv" yaml:"has_prv"`
	ExpansionTank       ExpansionTankStatus `json:"expansion_tank,omitempty" yaml:"expansion_tank"`
	ClosedLoop          bool                `json:"closed_loop" yaml:"closed_loop"`
	HasRecircPump       bool                `json:"has_recirc_pump" yaml:"has_recirc_pump"`
	RecircControlled    bool                `json:"recirc_controlled" yaml:"recirc_controlled"`
	HasSoftener         bool                `json:"has_softener" yaml:"has_softener"`
	SoftenerCapacityGPG *float64            `json:"softener_capacity_gpg,omitempty" yaml:"softener_capacity_gpg"`
	HasCarbonFilter     bool                `json:"has_carbon_filter" yaml:"has_carbon_filter"`
	Occupants           int                 `json:"occupants,omitempty" yaml:"occupants"`
}

// ConditionObservations describes what the inspection found on the unit.
// Nil service intervals mean the service was never performed.
type ConditionObservations struct {
	ActiveLeak             bool       `json:"active_leak" yaml:"active_leak"`
	LeakSource             LeakSource `json:"leak_source,omitempty" yaml:"leak_source"`
	VisualRust             bool       `json:"visual_rust" yaml:"visual_rust"`
	YearsSinceFlush        *float64   `json:"years_since_flush,omitempty" yaml:"years_since_flush"`
	YearsSinceAnode        *float64   `json:"years_since_anode,omitempty" yaml:"years_since_anode"`
	YearsSinceDescale      *float64   `json:"years_since_descale,omitempty" yaml:"years_since_descale"`
	YearsSinceCarbonFilter *float64   `json:"years_since_carbon_filter,omitempty" yaml:"years_since_carbon_filter"`
	FilterDirty            bool       `json:"filter_dirty" yaml:"filter_dirty"`
	DrainBlocked           bool       `json:"drain_blocked" yaml:"drain_blocked"`
}

// IsBreach reports whether the leak source is the primary pressure vessel.
// On a tankless unit a reported tank-body leak is the heat exchanger, so both
// sources count for every technology.
func (s LeakSource) IsBreach() bool {
	return s == LeakTankBody || s == LeakHeatExchanger
}

// Float returns a pointer to v. Handy for building observations in code.
func Float(v float64) *float64 { return &v }
