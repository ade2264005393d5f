package model

import "strings"

// FuelType identifies the heating technology of a unit.
type FuelType string

const (
	FuelGasTank          FuelType = "gas_tank"
	FuelElectricTank     FuelType = "electric_tank"
	FuelHybrid           FuelType = "hybrid"
	FuelTanklessGas      FuelType = "tankless_gas"
	FuelTanklessElectric FuelType = "tankless_electric"
)

// Technology is the actuarial class a fuel type belongs to.
type Technology string

const (
	TechTank     Technology = "tank"
	TechHybrid   Technology = "hybrid"
	TechTankless Technology = "tankless"
)

// Technology returns the actuarial class for the fuel type.
func (f FuelType) Technology() Technology {
	switch f {
	case FuelTanklessGas, FuelTanklessElectric:
		return TechTankless
	case FuelHybrid:
		return TechHybrid
	default:
		return TechTank
	}
}

// HasTank reports whether the unit stores water (and so has an anode and
// accumulates sediment).
func (f FuelType) HasTank() bool {
	return f.Technology() != TechTankless
}

// Known reports whether f is one of the supported fuel types.
func (f FuelType) Known() bool {
	switch f {
	case FuelGasTank, FuelElectricTank, FuelHybrid, FuelTanklessGas, FuelTanklessElectric:
		return true
	}
	return false
}

// ParseFuelType folds free-form fuel descriptions ("Heat Pump", "on-demand gas",
// "electric") onto the nearest supported fuel type. Anything unrecognized is
// treated as a gas tank, the most common installed base.
func ParseFuelType(s string) FuelType {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer("-", "_", " ", "_").Replace(v)
	if f := FuelType(v); f.Known() {
		return f
	}
	switch {
	case strings.Contains(v, "tankless") || strings.Contains(v, "on_demand"):
		if strings.Contains(v, "electric") {
			return FuelTanklessElectric
		}
		return FuelTanklessGas
	case strings.Contains(v, "hybrid") || strings.Contains(v, "heat_pump"):
		return FuelHybrid
	case strings.Contains(v, "electric"):
		return FuelElectricTank
	default:
		return FuelGasTank
	}
}

// Location is where the unit is installed; it drives install complexity.
type Location string

const (
	LocationGarage   Location = "garage"
	LocationBasement Location = "basement"
	LocationUtility  Location = "utility"
	LocationCloset   Location = "closet"
	LocationAttic    Location = "attic"
	LocationExterior Location = "exterior"
)

// Tier is the product tier used for price lookups.
type Tier string

const (
	TierGood   Tier = "good"
	TierBetter Tier = "better"
	TierBest   Tier = "best"
)

// UnitProfile describes the appliance itself. It is immutable per assessment.
type UnitProfile struct {
	CalendarAge     float64  `json:"calendar_age" yaml:"calendar_age"`
	FuelType        FuelType `json:"fuel_type" yaml:"fuel_type"`
	CapacityGallons float64  `json:"capacity_gallons,omitempty" yaml:"capacity_gallons"`
	Manufacturer    string   `json:"manufacturer,omitempty" yaml:"manufacturer"`
	Model           string   `json:"model,omitempty" yaml:"model"`
	Location        Location `json:"location,omitempty" yaml:"location"`
	Tier            Tier     `json:"tier,omitempty" yaml:"tier"`
}
