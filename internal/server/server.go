// Package server exposes a read-only HTTP view of the session for
// external render surfaces. It observes the session as a listener; it
// never mutates engine state.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"codeberg.org/aulin/anesctl/internal/alarm"
	"codeberg.org/aulin/anesctl/internal/logger"
	"codeberg.org/aulin/anesctl/internal/session"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

const (
	readTimeout     = 5 * time.Second
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

type Server struct {
	session *session.Session
	httpSrv *http.Server

	mu   sync.RWMutex
	last alarm.Notification
}

func New(addr string, sess *session.Session) *Server {
	s := &Server{
		session: sess,
		last:    alarm.Notification{State: alarm.StateIdle},
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/api/v1/state", s.handleState).Methods("GET")
	router.HandleFunc("/api/v1/history", s.handleHistory).Methods("GET")
	router.HandleFunc("/api/v1/parameters", s.handleParameters).Methods("GET")

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      handlers.LoggingHandler(os.Stdout, router),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	return s
}

// StateChanged implements session.Listener
func (s *Server) StateChanged(n alarm.Notification) {
	s.mu.Lock()
	s.last = n
	s.mu.Unlock()
}

// Serve blocks on the HTTP listener until Shutdown
func (s *Server) Serve() error {
	logger.Info().Str("addr", s.httpSrv.Addr).Msg("HTTP view listening")

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

type conditionView struct {
	Kind     string  `json:"kind"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Value    float64 `json:"value"`
}

type stateView struct {
	Lifecycle string          `json:"lifecycle"`
	State     string          `json:"state"`
	Banner    string          `json:"banner"`
	Active    []conditionView `json:"active_conditions"`
}

type eventView struct {
	ID       string        `json:"id"`
	RaisedAt time.Time     `json:"raised_at"`
	Sequence uint64        `json:"sequence"`
	Event    conditionView `json:"condition"`
}

type parameterView struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
	Set   bool   `json:"set"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	view := stateView{
		Lifecycle: s.session.Lifecycle().String(),
		State:     last.State.String(),
		Banner:    last.Banner,
		Active:    make([]conditionView, 0, len(last.Active)),
	}
	for _, c := range last.Active {
		view.Active = append(view.Active, conditionView{
			Kind:     string(c.Kind),
			Severity: c.Severity.String(),
			Message:  c.Message,
			Value:    c.Value,
		})
	}

	writeJSON(w, view)
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	history := s.session.History()

	views := make([]eventView, 0, len(history))
	for _, e := range history {
		views = append(views, eventView{
			ID:       e.ID,
			RaisedAt: e.RaisedAt,
			Sequence: e.Sequence,
			Event: conditionView{
				Kind:     string(e.Condition.Kind),
				Severity: e.Condition.Severity.String(),
				Message:  e.Condition.Message,
				Value:    e.Condition.Value,
			},
		})
	}

	writeJSON(w, views)
}

func (s *Server) handleParameters(w http.ResponseWriter, _ *http.Request) {
	params := s.session.Parameters()

	views := make([]parameterView, 0, len(params))
	for _, p := range params {
		views = append(views, parameterView{
			Name:  string(p.Name),
			Value: p.Value,
			Set:   p.Set,
		})
	}

	writeJSON(w, views)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}
