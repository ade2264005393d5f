package engine

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/opterra/internal/config"
	"github.com/sells-group/opterra/internal/model"
)

// Curve holds the actuarial parameters for one fuel type. Mid and K shape
// the logistic failure curve; Ceiling is the bioAge at which the unit is
// considered actuarially expired.
type Curve struct {
	Mid     float64
	K       float64
	Ceiling float64
}

// ServiceCosts are the per-event prices the forecast walks forward with,
// in today's dollars.
type ServiceCosts struct {
	Flush         float64
	Anode         float64
	Descale       float64
	HybridFilter  float64
	HybridDrain   float64
	CarbonFilter  float64
	FittingRepair float64
	PRVInstall    float64
	ExpansionTank float64
	MajorRepair   float64
	Upkeep        float64
}

// Params is the full, immutable tuning of the engine.
type Params struct {
	Curves  map[model.FuelType]Curve
	FailCap float64

	// Pressure (PSI).
	OptimalPSI            float64
	MaxPSI                float64
	PressureSlope         float64
	PressureCriticalSlope float64
	PressureCap           float64
	SpikePenalty          float64

	// Hardness (GPG).
	DefaultHardness         float64
	HardnessBaseline        float64
	HardnessSlope           float64
	ChemicalCap             float64
	DefaultSoftenerCapacity float64

	// Corrosion and anode shield (years).
	CorrosionMax        float64
	CorrosionDepletion  float64
	AnodeBudget         float64
	AnodeBudgetSoftened float64
	// RustExposure is the minimum unprotected time implied by visible
	// external corrosion on a tank.
	RustExposure float64

	ThermalPenalty float64
	RecircPenalty  float64

	// Sediment (lbs). Every comparison against these is strict (>).
	SedimentFlushDue   float64
	SedimentDebt       float64
	SedimentLockout    float64
	Precipitation      map[model.FuelType]float64
	GallonsPerOccupant float64

	// Forecast.
	HorizonYears int
	Inflation    float64
	Costs        ServiceCosts
	FallbackCost map[model.FuelType]float64
}

// DefaultParams returns the calibrated defaults.
func DefaultParams() Params {
	return Params{
		Curves: map[model.FuelType]Curve{
			model.FuelGasTank:          {Mid: 10, K: 0.70, Ceiling: 10},
			model.FuelElectricTank:     {Mid: 11, K: 0.65, Ceiling: 12},
			model.FuelHybrid:           {Mid: 11, K: 0.65, Ceiling: 12},
			model.FuelTanklessGas:      {Mid: 18, K: 0.45, Ceiling: 20},
			model.FuelTanklessElectric: {Mid: 18, K: 0.45, Ceiling: 20},
		},
		FailCap: 95,

		OptimalPSI:            60,
		MaxPSI:                80,
		PressureSlope:         0.01,
		PressureCriticalSlope: 0.025,
		PressureCap:           3.0,
		SpikePenalty:          1.15,

		DefaultHardness:         7,
		HardnessBaseline:        3,
		HardnessSlope:           0.02,
		ChemicalCap:             1.8,
		DefaultSoftenerCapacity: 25,

		CorrosionMax:        2.0,
		CorrosionDepletion:  0.25,
		AnodeBudget:         6,
		AnodeBudgetSoftened: 2.5,
		RustExposure:        1,

		ThermalPenalty: 1.25,
		RecircPenalty:  1.10,

		SedimentFlushDue: 5,
		SedimentDebt:     10,
		SedimentLockout:  15,
		// Fraction of dissolved hardness that settles as loose scale. At 7
		// GPG and three occupants a gas tank gathers about 0.8 lbs a year, so
		// an unflushed tank reaches lockout only with hard water or heavy use.
		Precipitation: map[model.FuelType]float64{
			model.FuelGasTank:      0.036,
			model.FuelElectricTank: 0.024,
			model.FuelHybrid:       0.029,
		},
		GallonsPerOccupant: 20,

		HorizonYears: 10,
		Inflation:    0.03,
		Costs: ServiceCosts{
			Flush:         150,
			Anode:         300,
			Descale:       200,
			HybridFilter:  40,
			HybridDrain:   60,
			CarbonFilter:  90,
			FittingRepair: 250,
			PRVInstall:    450,
			ExpansionTank: 350,
			MajorRepair:   600,
			Upkeep:        100,
		},
		FallbackCost: map[model.FuelType]float64{
			model.FuelGasTank:          2400,
			model.FuelElectricTank:     1900,
			model.FuelHybrid:           4200,
			model.FuelTanklessGas:      4500,
			model.FuelTanklessElectric: 3200,
		},
	}
}

// curve returns the curve for a fuel type, falling back to the gas tank curve.
func (p Params) curve(f model.FuelType) Curve {
	if c, ok := p.Curves[f]; ok {
		return c
	}
	return p.Curves[model.FuelGasTank]
}

// WithConfig applies non-zero overrides from the engine config section.
func WithConfig(p Params, c config.EngineConfig) Params {
	if c.HorizonYears > 0 {
		p.HorizonYears = c.HorizonYears
	}
	if c.InflationRate > 0 {
		p.Inflation = c.InflationRate
	}
	if c.SedimentFlushDueLbs > 0 {
		p.SedimentFlushDue = c.SedimentFlushDueLbs
	}
	if c.SedimentDebtLbs > 0 {
		p.SedimentDebt = c.SedimentDebtLbs
	}
	if c.SedimentLockoutLbs > 0 {
		p.SedimentLockout = c.SedimentLockoutLbs
	}
	if c.AnodeBudgetYears > 0 {
		p.AnodeBudget = c.AnodeBudgetYears
	}
	if c.AnodeBudgetSoftenedYears > 0 {
		p.AnodeBudgetSoftened = c.AnodeBudgetSoftenedYears
	}

	overrides := map[string]*float64{
		"flush":          &p.Costs.Flush,
		"anode":          &p.Costs.Anode,
		"descale":        &p.Costs.Descale,
		"hybrid_filter":  &p.Costs.HybridFilter,
		"hybrid_drain":   &p.Costs.HybridDrain,
		"carbon_filter":  &p.Costs.CarbonFilter,
		"fitting_repair": &p.Costs.FittingRepair,
		"prv_install":    &p.Costs.PRVInstall,
		"expansion_tank": &p.Costs.ExpansionTank,
		"major_repair":   &p.Costs.MajorRepair,
		"upkeep":         &p.Costs.Upkeep,
	}
	for name, v := range c.ServiceCosts {
		if dst, ok := overrides[name]; ok && v > 0 {
			*dst = v
		}
	}
	return p
}

// ValidateParams checks that a Params is internally consistent.
func ValidateParams(p Params) error {
	var errs []string

	for _, f := range []model.FuelType{
		model.FuelGasTank, model.FuelElectricTank, model.FuelHybrid,
		model.FuelTanklessGas, model.FuelTanklessElectric,
	} {
		c, ok := p.Curves[f]
		if !ok {
			errs = append(errs, fmt.Sprintf("missing curve for %s", f))
			continue
		}
		if c.K <= 0 || c.Mid <= 0 || c.Ceiling <= 0 {
			errs = append(errs, fmt.Sprintf("curve for %s must have positive mid, k and ceiling", f))
		}
	}
	if p.FailCap <= 0 || p.FailCap > 100 {
		errs = append(errs, "fail_cap must be in (0, 100]")
	}
	if p.MaxPSI <= p.OptimalPSI {
		errs = append(errs, "max_psi must be > optimal_psi")
	}

	caps := map[string]float64{
		"pressure_cap":    p.PressureCap,
		"spike_penalty":   p.SpikePenalty,
		"chemical_cap":    p.ChemicalCap,
		"corrosion_max":   p.CorrosionMax,
		"thermal_penalty": p.ThermalPenalty,
		"recirc_penalty":  p.RecircPenalty,
	}
	for name, v := range caps {
		if v < 1 {
			errs = append(errs, fmt.Sprintf("%s must be >= 1", name))
		}
	}

	if !(p.SedimentFlushDue < p.SedimentDebt && p.SedimentDebt < p.SedimentLockout) {
		errs = append(errs, "sediment thresholds must satisfy flush_due < debt < lockout")
	}
	if p.AnodeBudget <= 0 || p.AnodeBudgetSoftened <= 0 {
		errs = append(errs, "anode budgets must be > 0")
	}
	if p.RustExposure < 0 {
		errs = append(errs, "rust_exposure must be >= 0")
	}
	if p.HorizonYears <= 0 || p.HorizonYears > 30 {
		errs = append(errs, "horizon_years must be between 1 and 30")
	}
	if p.Inflation < 0 || p.Inflation > 0.2 {
		errs = append(errs, "inflation must be between 0 and 0.2")
	}

	if len(errs) > 0 {
		return eris.Errorf("engine: params validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
