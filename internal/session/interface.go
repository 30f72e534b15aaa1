package session

import "codeberg.org/aulin/anesctl/internal/alarm"

// Field names the parameter store accepts from the outside
type Field string

const (
	FieldProfile            Field = "profile"
	FieldWeight             Field = "weight"
	FieldFiO2               Field = "fio2"
	FieldFreshGasFlow       Field = "fresh_gas_flow"
	FieldAgent              Field = "agent"
	FieldAgentConcentration Field = "agent_concentration"
	FieldTidalVolume        Field = "tidal_volume"
	FieldRespiratoryRate    Field = "respiratory_rate"
	FieldPeakAirwayPressure Field = "peak_airway_pressure"
)

// Lifecycle is the machine lifecycle, distinct from the alarm state
type Lifecycle int8

const (
	LifecycleStopped Lifecycle = iota
	LifecycleRunning
)

// String implements the Stringer interface
func (l Lifecycle) String() string {
	if l == LifecycleRunning {
		return "running"
	}

	return "stopped"
}

// Listener receives the outcome of every evaluation cycle. Implemented by
// render surfaces (CLI banner, HTTP view); called synchronously on the
// action that triggered the cycle.
type Listener interface {
	StateChanged(notification alarm.Notification)
}

// Parameter is one store entry as shown to render surfaces
type Parameter struct {
	Name  Field
	Value string
	Set   bool
}
