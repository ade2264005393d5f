package model

import "time"

// Stressor names, in fold order.
const (
	StressPressure  = "pressure"
	StressChemical  = "chemical"
	StressCorrosion = "corrosion"
	StressThermal   = "thermal"
	StressRecirc    = "recirc"
)

// Stressors maps a stressor name to its multiplier (1.0 = no added stress).
type Stressors map[string]float64

// Max returns the largest multiplier, or 1.0 when empty.
func (s Stressors) Max() float64 {
	m := 1.0
	for _, v := range s {
		if v > m {
			m = v
		}
	}
	return m
}

// Metrics are the derived wear numbers of one assessment.
type Metrics struct {
	CalendarAge   float64   `json:"calendar_age"`
	BioAge        float64   `json:"bio_age"`
	FailProb      float64   `json:"fail_prob"`
	HealthScore   int       `json:"health_score"`
	Stressors     Stressors `json:"stressors"`
	AgingRate     float64   `json:"aging_rate"`
	ShieldLife    float64   `json:"shield_life"`
	ExposureYears float64   `json:"exposure_years"`
	SedimentLbs   float64   `json:"sediment_lbs"`
	SedimentRate  float64   `json:"sediment_rate"`
	FlushLocked   bool      `json:"flush_locked"`
}

// Action is the recommended course of action.
type Action string

const (
	ActionReplaceNow  Action = "REPLACE_NOW"
	ActionReplaceSoon Action = "REPLACE_SOON"
	ActionRepair      Action = "REPAIR"
	ActionMaintain    Action = "MAINTAIN"
	ActionMonitor     Action = "MONITOR"
	ActionPass        Action = "PASS"
)

// IsReplacement reports whether the action recommends a new unit.
func (a Action) IsReplacement() bool {
	return a == ActionReplaceNow || a == ActionReplaceSoon
}

// Badge is the severity shown next to a verdict.
type Badge string

const (
	BadgeCritical Badge = "CRITICAL"
	BadgeWarning  Badge = "WARNING"
	BadgeCaution  Badge = "CAUTION"
	BadgeInfo     Badge = "INFO"
	BadgeOptimal  Badge = "OPTIMAL"
)

// Verdict is the outcome of the rule engine. Exactly one rule produces it.
type Verdict struct {
	Action     Action `json:"action"`
	Badge      Badge  `json:"badge"`
	Reason     string `json:"reason"`
	Repairable bool   `json:"repairable"`
	RuleID     string `json:"rule_id"`
}

// Urgency is the replacement-budget urgency tier.
type Urgency string

const (
	UrgencyImmediate Urgency = "IMMEDIATE"
	UrgencyHigh      Urgency = "HIGH"
	UrgencyModerate  Urgency = "MODERATE"
	UrgencyLow       Urgency = "LOW"
)

// FinancialProjection is the replacement budget and the repair-vs-replace
// forecast. Path slices are cumulative and indexed by year (0 = today).
type FinancialProjection struct {
	ReplacementCost   float64   `json:"replacement_cost"`
	MonthsUntilTarget int       `json:"months_until_target"`
	TargetDate        time.Time `json:"target_date,omitzero"`
	MonthlySavings    float64   `json:"monthly_savings"`
	Urgency           Urgency   `json:"urgency"`
	HorizonYears      int       `json:"horizon_years"`
	RepairPath        []float64 `json:"repair_path"`
	ReplacePath       []float64 `json:"replace_path"`
	BreakEvenYear     int       `json:"break_even_year"`
}

// TaskType tags a maintenance task.
type TaskType string

const (
	TaskFlush          TaskType = "flush"
	TaskAnode          TaskType = "anode"
	TaskDescale        TaskType = "descale"
	TaskFilter         TaskType = "filter"
	TaskDrain          TaskType = "drain"
	TaskInfrastructure TaskType = "infrastructure"
)

// TaskUrgency is the scheduling tier of a maintenance task.
type TaskUrgency string

const (
	TaskOverdue  TaskUrgency = "overdue"
	TaskDue      TaskUrgency = "due"
	TaskSchedule TaskUrgency = "schedule"
	TaskUpcoming TaskUrgency = "upcoming"
	TaskLocked   TaskUrgency = "locked"
)

// Rank orders urgencies from most to least pressing.
func (u TaskUrgency) Rank() int {
	switch u {
	case TaskOverdue:
		return 0
	case TaskLocked:
		return 1
	case TaskDue:
		return 2
	case TaskSchedule:
		return 3
	default:
		return 4
	}
}

// MaintenanceTask is one due or upcoming service item.
type MaintenanceTask struct {
	Type           TaskType    `json:"type"`
	Title          string      `json:"title"`
	MonthsUntilDue int         `json:"months_until_due"`
	Urgency        TaskUrgency `json:"urgency"`
	Infrastructure bool        `json:"infrastructure"`
	Locked         bool        `json:"locked"`
}

// Severity grades a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Finding codes.
const (
	FindingBreach           = "containment_breach"
	FindingLeak             = "active_leak"
	FindingCriticalPressure = "critical_pressure"
	FindingHighPressure     = "high_pressure"
	FindingMissingPRV       = "missing_prv"
	FindingExpansionTank    = "expansion_tank"
	FindingSedimentLockout  = "sediment_lockout"
	FindingSediment         = "sediment_buildup"
	FindingAnodeDepleted    = "anode_depleted"
	FindingRust             = "visual_rust"
	FindingAging            = "end_of_life"
	FindingHardWater        = "hard_water"
	FindingDescale          = "descale_overdue"
	FindingHybridFilter     = "hybrid_filter"
	FindingHybridDrain      = "hybrid_drain"
	FindingRecirc           = "uncontrolled_recirc"
)

// Finding is a machine-readable observation derived from the metrics.
type Finding struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail"`
}

// Result is the full output of one assessment.
type Result struct {
	Metrics     Metrics             `json:"metrics"`
	Verdict     Verdict             `json:"verdict"`
	Financial   FinancialProjection `json:"financial"`
	Maintenance []MaintenanceTask   `json:"maintenance"`
	Findings    []Finding           `json:"findings"`
}

// PrimaryFinding returns the most severe finding, or false when there are none.
func (r Result) PrimaryFinding() (Finding, bool) {
	if len(r.Findings) == 0 {
		return Finding{}, false
	}
	best := r.Findings[0]
	for _, f := range r.Findings[1:] {
		if severityRank(f.Severity) < severityRank(best.Severity) {
			best = f
		}
	}
	return best, true
}

func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	default:
		return 3
	}
}
