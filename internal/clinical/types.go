package clinical

import "time"

// Profile selects the patient category the ventilation bands are tuned for.
type Profile string

const (
	ProfileAdult     Profile = "adult"
	ProfilePediatric Profile = "pediatric"
)

// IsValid returns whether the profile is a known patient category
func (p Profile) IsValid() bool {
	return p == ProfileAdult || p == ProfilePediatric
}

// Agent identifies the volatile anesthetic agent in use.
type Agent string

const (
	Sevoflurane Agent = "sevoflurane"
	Isoflurane  Agent = "isoflurane"
	Desflurane  Agent = "desflurane"
)

// IsValid returns whether the agent is a known volatile agent
func (a Agent) IsValid() bool {
	switch a {
	case Sevoflurane, Isoflurane, Desflurane:
		return true
	default:
		return false
	}
}

// Severity orders clinical findings; higher values escalate the system state.
type Severity int8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityAlarm
)

// String implements the Stringer interface
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityAlarm:
		return "alarm"
	default:
		return "unknown"
	}
}

// Kind identifies the safety check that raised a condition
type Kind string

const (
	KindHypoxicMixture    Kind = "hypoxic_mixture"
	KindHypoxicGuard      Kind = "hypoxic_guard"
	KindApnea             Kind = "apnea"
	KindRespiratoryRate   Kind = "respiratory_rate"
	KindMinuteVentilation Kind = "minute_ventilation"
	KindTidalVolume       Kind = "tidal_volume"
	KindAirwayPressure    Kind = "airway_pressure"
	KindDisconnection     Kind = "circuit_disconnection"
	KindAgentOverdose     Kind = "agent_overdose"
	KindGasDelivery       Kind = "gas_delivery"
	KindFreshGasFlow      Kind = "fresh_gas_flow"
)

// Condition is a raised safety finding. Immutable once returned by a rule.
type Condition struct {
	Kind     Kind
	Severity Severity
	Message  string
	Value    float64
}

// Snapshot is an immutable capture of the operating parameters at
// evaluation time. FiO2 is a fraction, not a percentage.
type Snapshot struct {
	Sequence           uint64
	Timestamp          time.Time
	Profile            Profile
	WeightKg           float64
	FiO2               float64
	FreshGasFlow       float64
	Agent              Agent
	AgentConcentration float64
	TidalVolume        float64
	RespiratoryRate    float64
	PeakAirwayPressure float64
	HypoxicGuard       bool
}

const mlPerLiter = 1000.0

// MinuteVentilation returns tidal volume times respiratory rate in L/min.
func (s Snapshot) MinuteVentilation() float64 {
	return s.TidalVolume * s.RespiratoryRate / mlPerLiter
}

// TidalVolumePerKg returns the delivered tidal volume in mL/kg.
func (s Snapshot) TidalVolumePerKg() float64 {
	if s.WeightKg <= 0 {
		return 0
	}

	return s.TidalVolume / s.WeightKg
}
