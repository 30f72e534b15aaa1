package session_test

import (
	"context"
	"testing"

	"codeberg.org/aulin/anesctl/internal/alarm"
	"codeberg.org/aulin/anesctl/internal/clinical"
	"codeberg.org/aulin/anesctl/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureListener struct {
	notifications []alarm.Notification
}

func (c *captureListener) StateChanged(n alarm.Notification) {
	c.notifications = append(c.notifications, n)
}

func newSession() *session.Session {
	return session.New(session.Config{HypoxicGuard: true}, nil)
}

func TestStartWithDefaultsIsNormal(t *testing.T) {
	s := newSession()

	require.NoError(t, s.Start(context.Background()))

	assert.Equal(t, session.LifecycleRunning, s.Lifecycle())
	assert.Equal(t, alarm.StateNormal, s.State())
}

func TestStartTwiceFails(t *testing.T) {
	s := newSession()

	require.NoError(t, s.Start(context.Background()))
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestStartRefusedWhenFieldUnset(t *testing.T) {
	s := newSession()
	s.Clear()

	fields := map[session.Field]string{
		session.FieldProfile:            "adult",
		session.FieldWeight:             "70",
		session.FieldFiO2:               "0.5",
		session.FieldFreshGasFlow:       "4",
		session.FieldAgent:              "sevoflurane",
		session.FieldAgentConcentration: "2",
		session.FieldTidalVolume:        "500",
		session.FieldRespiratoryRate:    "12",
		// peak_airway_pressure deliberately left unset
	}
	for f, v := range fields {
		require.NoError(t, s.SetParameter(context.Background(), f, v))
	}

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "peak_airway_pressure")
	assert.Equal(t, session.LifecycleStopped, s.Lifecycle())
	assert.Equal(t, alarm.StateIdle, s.State())
}

func TestStoppedMachineProducesNoConditions(t *testing.T) {
	s := newSession()
	listener := &captureListener{}
	s.Subscribe(listener)

	require.NoError(t, s.SetParameter(context.Background(), session.FieldFiO2, "0.18"))

	assert.Empty(t, listener.notifications, "No evaluation while stopped")
	assert.Equal(t, alarm.StateIdle, s.State())
	assert.Empty(t, s.History())
}

func TestHypoxiaScenario(t *testing.T) {
	s := newSession()
	listener := &captureListener{}
	s.Subscribe(listener)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.SetParameter(context.Background(), session.FieldFiO2, "0.18"))

	assert.Equal(t, alarm.StateAlarm, s.State())

	last := listener.notifications[len(listener.notifications)-1]
	assert.Equal(t, alarm.StateAlarm, last.State)
	assert.Contains(t, last.Banner, "hypoxic gas mixture")
}

func TestEditTriggersCycleBeforeReturn(t *testing.T) {
	s := newSession()
	listener := &captureListener{}
	s.Subscribe(listener)

	require.NoError(t, s.Start(context.Background()))
	before := len(listener.notifications)

	require.NoError(t, s.SetParameter(context.Background(), session.FieldPeakAirwayPressure, "45"))

	require.Len(t, listener.notifications, before+1)
	assert.Equal(t, alarm.StateAlarm, listener.notifications[before].State)
}

func TestLatchingAcrossCorrection(t *testing.T) {
	s := newSession()

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.SetParameter(context.Background(), session.FieldFiO2, "0.18"))
	require.Equal(t, alarm.StateAlarm, s.State())

	// Correcting the parameter clears the live state, not the history
	require.NoError(t, s.SetParameter(context.Background(), session.FieldFiO2, "0.50"))
	assert.Equal(t, alarm.StateNormal, s.State())

	history := s.History()
	require.NotEmpty(t, history)
	kinds := make([]clinical.Kind, 0, len(history))
	for _, e := range history {
		kinds = append(kinds, e.Condition.Kind)
	}
	assert.Contains(t, kinds, clinical.KindHypoxicMixture)
}

func TestResetIsIdempotent(t *testing.T) {
	s := newSession()

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.SetParameter(context.Background(), session.FieldFiO2, "0.18"))
	require.NotEmpty(t, s.History())

	s.Reset()
	first := snapshotOf(s)

	s.Reset()
	second := snapshotOf(s)

	assert.Equal(t, first, second)
	assert.Equal(t, session.LifecycleStopped, s.Lifecycle())
	assert.Equal(t, alarm.StateIdle, s.State())
	assert.Empty(t, s.History())
}

type sessionView struct {
	lifecycle  session.Lifecycle
	state      alarm.State
	history    int
	parameters []session.Parameter
}

func snapshotOf(s *session.Session) sessionView {
	return sessionView{
		lifecycle:  s.Lifecycle(),
		state:      s.State(),
		history:    len(s.History()),
		parameters: s.Parameters(),
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	s := newSession()

	require.NoError(t, s.SetParameter(context.Background(), session.FieldWeight, "95"))
	s.Reset()

	for _, p := range s.Parameters() {
		require.True(t, p.Set, "Reset must leave a fully populated store")
		if p.Name == session.FieldWeight {
			assert.Equal(t, "70", p.Value)
		}
	}

	// A start right after reset is valid
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, alarm.StateNormal, s.State())
}

func TestOutOfRangeEditRejected(t *testing.T) {
	s := newSession()
	require.NoError(t, s.Start(context.Background()))

	err := s.SetParameter(context.Background(), session.FieldFreshGasFlow, "-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parameter_out_of_range")

	// The rejected edit never reached the store or the evaluator
	assert.Equal(t, alarm.StateNormal, s.State())
}

func TestUnparsableEditRejected(t *testing.T) {
	s := newSession()

	err := s.SetParameter(context.Background(), session.FieldWeight, "heavy")
	require.Error(t, err)
}

func TestUnknownFieldRejected(t *testing.T) {
	s := newSession()

	err := s.SetParameter(context.Background(), "etco2", "35")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown_parameter")
}

func TestClearWhileRunningGoesIdle(t *testing.T) {
	s := newSession()
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.SetParameter(context.Background(), session.FieldFiO2, "0.18"))

	s.Clear()

	assert.Equal(t, session.LifecycleStopped, s.Lifecycle())
	assert.Equal(t, alarm.StateIdle, s.State())
	assert.NotEmpty(t, s.History(), "Clear keeps the audit history")

	for _, p := range s.Parameters() {
		assert.False(t, p.Set)
	}
}

func TestLoadDefaultsWhileRunningReevaluates(t *testing.T) {
	s := newSession()
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.SetParameter(context.Background(), session.FieldFiO2, "0.18"))
	require.Equal(t, alarm.StateAlarm, s.State())

	require.NoError(t, s.LoadDefaults(context.Background()))
	assert.Equal(t, alarm.StateNormal, s.State())
}

func TestHypoxicGuardDisabledSession(t *testing.T) {
	s := session.New(session.Config{HypoxicGuard: false}, nil)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.SetParameter(context.Background(), session.FieldFiO2, "0.23"))

	for _, c := range s.LastNotification().Active {
		assert.NotEqual(t, clinical.KindHypoxicGuard, c.Kind)
	}
	// The hypoxic mixture alarm still fires; the guard is an interlock,
	// not the mixture check
	assert.Equal(t, alarm.StateAlarm, s.State())
}
