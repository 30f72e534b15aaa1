package session

import (
	"context"
	"sync"
	"time"

	"codeberg.org/aulin/anesctl/internal/alarm"
	"codeberg.org/aulin/anesctl/internal/clinical"
	"codeberg.org/aulin/anesctl/internal/errors"
	"codeberg.org/aulin/anesctl/internal/logger"
)

// Config holds the session options that are not parameters
type Config struct {
	HypoxicGuard bool
}

// Session is the one explicitly owned machine instance: parameter store,
// lifecycle, and alarm aggregator behind a single lock. All evaluation is
// synchronous and triggered by the action that caused it.
type Session struct {
	mu           sync.Mutex
	cfg          Config
	store        *store
	lifecycle    Lifecycle
	sequence     uint64
	aggregator   *alarm.Aggregator
	listeners    []Listener
	lastNotified alarm.Notification
}

func New(cfg Config, recorder alarm.Recorder) *Session {
	s := &Session{
		cfg:        cfg,
		store:      newStore(),
		lifecycle:  LifecycleStopped,
		aggregator: alarm.NewAggregator(recorder),
	}
	s.lastNotified = alarm.Notification{State: alarm.StateIdle}

	return s
}

// Subscribe registers a render surface for cycle notifications
func (s *Session) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, l)
}

// SetParameter stores one edited field. While running, the edit triggers
// a full evaluation cycle before the call returns; no edit is ever
// rendered without its conditions.
func (s *Session) SetParameter(ctx context.Context, field Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.set(field, value); err != nil {
		return err
	}

	logger.Debug().
		Str("field", string(field)).
		Str("value", value).
		Msg("parameter set")

	if s.lifecycle == LifecycleRunning {
		return s.cycle(ctx)
	}

	return nil
}

// Start validates the full parameter set and moves the lifecycle to
// running. On success the first evaluation cycle runs before Start
// returns. A refused start leaves the lifecycle stopped.
func (s *Session) Start(ctx context.Context) error {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lifecycle == LifecycleRunning {
		return errFactory.New(ErrAlreadyRunning)
	}

	snapshot, err := s.store.snapshot(s.cfg.HypoxicGuard)
	if err != nil {
		return err
	}
	if err := clinical.Validate(snapshot); err != nil {
		return err
	}

	s.lifecycle = LifecycleRunning
	logger.Info().Msg("Session started")

	return s.cycle(ctx)
}

// Reset restores the documented safe defaults, stops the lifecycle and
// clears the alarm history. In-process only; idempotent.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lifecycle = LifecycleStopped
	s.store.loadDefaults()
	s.notify(s.aggregator.Reset())
	logger.Info().Msg("Session reset to defaults")
}

// Clear empties the parameter form without touching the alarm history.
// A running session drops back to idle: running requires a fully
// populated store.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.clear()
	if s.lifecycle == LifecycleRunning {
		s.lifecycle = LifecycleStopped
		s.notify(s.aggregator.Idle())
	}
}

// LoadDefaults restores the default parameter set. A running session is
// re-evaluated against the defaults immediately.
func (s *Session) LoadDefaults(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.loadDefaults()
	if s.lifecycle == LifecycleRunning {
		return s.cycle(ctx)
	}

	return nil
}

// cycle runs evaluate → aggregate → notify for the current store.
// Callers hold s.mu and guarantee the lifecycle is running.
func (s *Session) cycle(ctx context.Context) error {
	snapshot, err := s.store.snapshot(s.cfg.HypoxicGuard)
	if err != nil {
		return err
	}

	s.sequence++
	snapshot.Sequence = s.sequence
	snapshot.Timestamp = time.Now()

	conditions := clinical.Evaluate(snapshot)
	s.notify(s.aggregator.Reduce(ctx, snapshot.Sequence, conditions))

	return nil
}

func (s *Session) notify(n alarm.Notification) {
	s.lastNotified = n
	for _, l := range s.listeners {
		l.StateChanged(n)
	}
}

// Lifecycle returns the current machine lifecycle
func (s *Session) Lifecycle() Lifecycle {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lifecycle
}

// State returns the current reduced system state
func (s *Session) State() alarm.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.aggregator.State()
}

// LastNotification returns the outcome of the most recent cycle
func (s *Session) LastNotification() alarm.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastNotified
}

// History returns the latched alarm history since the last reset
func (s *Session) History() []alarm.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.aggregator.History()
}

// Parameters returns the store contents in display order
func (s *Session) Parameters() []Parameter {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.parameters()
}
