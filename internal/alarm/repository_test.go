package alarm_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/aulin/anesctl/internal/alarm"
	"codeberg.org/aulin/anesctl/internal/clinical"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) alarm.Config {
	t.Helper()

	cfg := alarm.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(t.TempDir(), "history.db")
	cfg.BatchSize = 1 // flush synchronously in tests

	return cfg
}

func testEvent(sequence uint64, c clinical.Condition) *alarm.Event {
	return &alarm.Event{
		ID:        uuid.NewString(),
		Sequence:  sequence,
		RaisedAt:  time.Now(),
		Condition: c,
	}
}

func TestRecorderDisabledIsNoop(t *testing.T) {
	cfg := alarm.DefaultConfig()

	rec, err := alarm.NewRecorder(cfg)
	require.NoError(t, err)

	require.NoError(t, rec.Record(context.Background(), testEvent(1, hypoxia())))
	require.NoError(t, rec.Close())
}

func TestRecorderRejectsNilEvent(t *testing.T) {
	rep, err := alarm.NewRepository(testConfig(t))
	require.NoError(t, err)
	defer rep.Close()

	err = rep.Record(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alarm_invalid_event")
}

func TestRepositoryRoundTrip(t *testing.T) {
	rep, err := alarm.NewRepository(testConfig(t))
	require.NoError(t, err)
	defer rep.Close()

	first := testEvent(1, hypoxia())
	second := testEvent(2, lowFlow())
	require.NoError(t, rep.Record(context.Background(), first))
	require.NoError(t, rep.Record(context.Background(), second))

	events, err := rep.Recent(10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	byID := map[string]alarm.Event{}
	for _, e := range events {
		byID[e.ID] = e
	}

	got, ok := byID[first.ID]
	require.True(t, ok)
	assert.Equal(t, clinical.KindHypoxicMixture, got.Condition.Kind)
	assert.Equal(t, clinical.SeverityAlarm, got.Condition.Severity)
	assert.Equal(t, first.Condition.Message, got.Condition.Message)
	assert.InDelta(t, 0.18, got.Condition.Value, 1e-9)
	assert.Equal(t, uint64(1), got.Sequence)

	got, ok = byID[second.ID]
	require.True(t, ok)
	assert.Equal(t, clinical.SeverityWarning, got.Condition.Severity)
}

func TestRepositoryBatchedFlushOnClose(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 100
	cfg.BatchTimeout = 60

	rep, err := alarm.NewRepository(cfg)
	require.NoError(t, err)

	require.NoError(t, rep.Record(context.Background(), testEvent(1, hypoxia())))
	require.NoError(t, rep.Close())

	// Reopen and confirm the buffered event was flushed on close
	rep, err = alarm.NewRepository(cfg)
	require.NoError(t, err)
	defer rep.Close()

	events, err := rep.Recent(10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRecordAfterCloseFails(t *testing.T) {
	rep, err := alarm.NewRepository(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, rep.Close())

	err = rep.Record(context.Background(), testEvent(1, hypoxia()))
	require.Error(t, err)
}

func TestRecordHonorsCancelledContext(t *testing.T) {
	rep, err := alarm.NewRepository(testConfig(t))
	require.NoError(t, err)
	defer rep.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = rep.Record(ctx, testEvent(1, hypoxia()))
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := alarm.Config{Enabled: true, DBPath: ""}
	require.Error(t, cfg.Validate())

	cfg = alarm.Config{Enabled: false, DBPath: ""}
	require.NoError(t, cfg.Validate())
}
