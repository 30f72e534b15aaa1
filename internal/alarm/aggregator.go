package alarm

import (
	"context"
	"time"

	"codeberg.org/aulin/anesctl/internal/clinical"
	"codeberg.org/aulin/anesctl/internal/logger"
	"github.com/google/uuid"
)

// Aggregator reduces each cycle's condition set to one system state and
// keeps the latched alarm history. It is owned by the session and is not
// safe for concurrent use on its own.
type Aggregator struct {
	state    State
	active   []clinical.Condition
	history  []Event
	recorder Recorder
}

func NewAggregator(recorder Recorder) *Aggregator {
	if recorder == nil {
		recorder = &noopRecorder{}
	}

	return &Aggregator{
		state:    StateIdle,
		recorder: recorder,
	}
}

// Reduce consumes the conditions raised for one snapshot, recomputes the
// system state from the active set only, and latches newly raised
// conditions into history. Returns the notification for render surfaces.
func (a *Aggregator) Reduce(ctx context.Context, sequence uint64, conditions []clinical.Condition) Notification {
	a.latch(ctx, sequence, conditions)
	a.active = conditions
	a.state = reduceState(conditions)

	return Notification{
		State:    a.state,
		Active:   conditions,
		Banner:   bannerMessage(a.state, conditions),
		Sequence: sequence,
	}
}

// Idle forces the display state while the machine lifecycle is stopped.
// Stale conditions are dropped from the active set; history is untouched.
func (a *Aggregator) Idle() Notification {
	a.state = StateIdle
	a.active = nil

	return Notification{State: StateIdle, Banner: "idle: enter parameters and start"}
}

// Reset clears the latched history and returns the aggregator to idle.
func (a *Aggregator) Reset() Notification {
	a.history = nil

	return a.Idle()
}

func (a *Aggregator) State() State {
	return a.state
}

// Active returns the conditions raised by the most recent cycle
func (a *Aggregator) Active() []clinical.Condition {
	out := make([]clinical.Condition, len(a.active))
	copy(out, a.active)

	return out
}

// History returns the latched events since the last reset, oldest first
func (a *Aggregator) History() []Event {
	out := make([]Event, len(a.history))
	copy(out, a.history)

	return out
}

// latch appends conditions that were not active in the previous cycle,
// or whose severity escalated, and hands them to the recorder.
func (a *Aggregator) latch(ctx context.Context, sequence uint64, conditions []clinical.Condition) {
	previous := make(map[clinical.Kind]clinical.Severity, len(a.active))
	for _, c := range a.active {
		previous[c.Kind] = c.Severity
	}

	for _, c := range conditions {
		if sev, ok := previous[c.Kind]; ok && sev >= c.Severity {
			continue
		}

		event := Event{
			ID:        uuid.NewString(),
			Sequence:  sequence,
			RaisedAt:  time.Now(),
			Condition: c,
		}
		a.history = append(a.history, event)

		if err := a.recorder.Record(ctx, &event); err != nil {
			logger.Error().Err(err).
				Str("kind", string(c.Kind)).
				Msg("failed to record alarm event")
		}
	}
}

func reduceState(conditions []clinical.Condition) State {
	state := StateNormal
	for _, c := range conditions {
		switch c.Severity {
		case clinical.SeverityAlarm:
			return StateAlarm
		case clinical.SeverityWarning:
			state = StateWarning
		case clinical.SeverityInfo:
			// Informational findings never escalate the state
		}
	}

	return state
}

// bannerMessage picks the message shown on the banner: the first condition
// carrying the highest severity. Condition order is the evaluator's
// registry order, which encodes clinical priority.
func bannerMessage(state State, conditions []clinical.Condition) string {
	if state == StateNormal || len(conditions) == 0 {
		return "running: all parameters within limits"
	}

	highest := conditions[0].Severity
	for _, c := range conditions {
		if c.Severity > highest {
			highest = c.Severity
		}
	}

	for _, c := range conditions {
		if c.Severity == highest {
			return c.Message
		}
	}

	return conditions[0].Message
}
