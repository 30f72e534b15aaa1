package alarm

import (
	"context"
	"time"

	"codeberg.org/aulin/anesctl/internal/clinical"
)

// State is the reduced system state shown on the banner.
type State int8

const (
	StateIdle State = iota
	StateNormal
	StateWarning
	StateAlarm
)

// String implements the Stringer interface
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNormal:
		return "normal"
	case StateWarning:
		return "warning"
	case StateAlarm:
		return "alarm"
	default:
		return "unknown"
	}
}

// Event is one latched history entry: a condition and when it was first
// raised. History is an audit log; it never feeds back into state.
type Event struct {
	ID        string
	Sequence  uint64
	RaisedAt  time.Time
	Condition clinical.Condition
}

// Notification carries one evaluation cycle's outcome to render surfaces.
type Notification struct {
	State    State
	Active   []clinical.Condition
	Banner   string
	Sequence uint64
}

// Recorder persists history events for audit
type Recorder interface {
	Record(ctx context.Context, event *Event) error
	Close() error
}

// Repository extends Recorder with audit queries over persisted events
type Repository interface {
	Recorder
	Recent(limit int) ([]Event, error)
}
