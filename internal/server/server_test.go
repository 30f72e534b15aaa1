package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/aulin/anesctl/internal/server"
	"codeberg.org/aulin/anesctl/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) (*session.Session, *server.Server) {
	t.Helper()

	sess := session.New(session.Config{HypoxicGuard: true}, nil)
	srv := server.New("127.0.0.1:0", sess)
	sess.Subscribe(srv)

	return sess, srv
}

func get(t *testing.T, srv *server.Server, path string, out any) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}

	return rec
}

func TestHealth(t *testing.T) {
	_, srv := newFixture(t)

	var body map[string]string
	get(t, srv, "/health", &body)
	assert.Equal(t, "ok", body["status"])
}

func TestStateBeforeStartIsIdle(t *testing.T) {
	_, srv := newFixture(t)

	var body struct {
		Lifecycle string `json:"lifecycle"`
		State     string `json:"state"`
	}
	get(t, srv, "/api/v1/state", &body)

	assert.Equal(t, "stopped", body.Lifecycle)
	assert.Equal(t, "idle", body.State)
}

func TestStateReflectsAlarm(t *testing.T) {
	sess, srv := newFixture(t)

	require.NoError(t, sess.Start(context.Background()))
	require.NoError(t, sess.SetParameter(context.Background(), session.FieldFiO2, "0.18"))

	var body struct {
		Lifecycle string `json:"lifecycle"`
		State     string `json:"state"`
		Banner    string `json:"banner"`
		Active    []struct {
			Kind     string `json:"kind"`
			Severity string `json:"severity"`
		} `json:"active_conditions"`
	}
	get(t, srv, "/api/v1/state", &body)

	assert.Equal(t, "running", body.Lifecycle)
	assert.Equal(t, "alarm", body.State)
	assert.Contains(t, body.Banner, "hypoxic gas mixture")
	assert.NotEmpty(t, body.Active)
}

func TestHistoryEndpoint(t *testing.T) {
	sess, srv := newFixture(t)

	require.NoError(t, sess.Start(context.Background()))
	require.NoError(t, sess.SetParameter(context.Background(), session.FieldFiO2, "0.18"))
	require.NoError(t, sess.SetParameter(context.Background(), session.FieldFiO2, "0.50"))

	var events []struct {
		ID        string `json:"id"`
		Condition struct {
			Kind string `json:"kind"`
		} `json:"condition"`
	}
	get(t, srv, "/api/v1/history", &events)

	require.NotEmpty(t, events, "Corrected condition stays latched in history")
	kinds := make([]string, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, e.Condition.Kind)
	}
	assert.Contains(t, kinds, "hypoxic_mixture")
}

func TestParametersEndpoint(t *testing.T) {
	sess, srv := newFixture(t)

	require.NoError(t, sess.SetParameter(context.Background(), session.FieldWeight, "85"))

	var params []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
		Set   bool   `json:"set"`
	}
	get(t, srv, "/api/v1/parameters", &params)

	require.Len(t, params, 9)
	found := false
	for _, p := range params {
		if p.Name == "weight" {
			found = true
			assert.True(t, p.Set)
			assert.Equal(t, "85", p.Value)
		}
	}
	assert.True(t, found)
}

func TestMutatingMethodsRejected(t *testing.T) {
	_, srv := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/state", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
