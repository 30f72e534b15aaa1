package alarm

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/aulin/anesctl/internal/clinical"
	"codeberg.org/aulin/anesctl/internal/errors"
	"codeberg.org/aulin/anesctl/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

// NewRecorder returns a sqlite-backed recorder, or a no-op recorder when
// history persistence is disabled.
func NewRecorder(cfg Config) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		logger.Debug().Msg("History persistence disabled, using no-op recorder")
		return &noopRecorder{}, nil
	}

	return newRepository(cfg)
}

// NewRepository returns a sqlite-backed repository with query access,
// for callers that render the persisted audit trail.
func NewRepository(cfg Config) (Repository, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	return newRepository(cfg)
}

type noopRecorder struct{}

func (*noopRecorder) Record(_ context.Context, _ *Event) error { return nil }
func (*noopRecorder) Close() error                             { return nil }

type repository struct {
	db            *sql.DB
	cfg           Config
	mu            sync.Mutex
	buffer        []*Event
	closed        bool
	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
}

func newRepository(cfg Config) (*repository, error) {
	errFactory := errors.New()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, err.Error())
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, err.Error())
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Msg("Alarm history repository initialized")

	repo := &repository{
		db:            db,
		cfg:           cfg,
		buffer:        make([]*Event, 0, max(cfg.BatchSize, 1)),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}

	if cfg.BatchSize > 1 && cfg.BatchTimeout > 0 {
		repo.flushTicker = time.NewTicker(time.Duration(cfg.BatchTimeout) * time.Second)
		go repo.flusher()
	}

	return repo, nil
}

func (r *repository) Record(ctx context.Context, event *Event) error {
	errFactory := errors.New()

	if event == nil {
		return errFactory.New(ErrInvalidEvent)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errFactory.New(ErrRecorderClosed)
	}

	r.buffer = append(r.buffer, event)
	if len(r.buffer) >= r.cfg.BatchSize {
		return r.flush()
	}

	return nil
}

// Recent returns the latest persisted events, newest first.
func (r *repository) Recent(limit int) ([]Event, error) {
	errFactory := errors.New()

	r.mu.Lock()
	if err := r.flush(); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.mu.Unlock()

	rows, err := r.db.Query(`
        SELECT id, raised_at, sequence, kind, severity, message, value
        FROM alarm_events
        ORDER BY raised_at DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event    Event
			raisedAt int64
			severity string
		)
		if err := rows.Scan(&event.ID, &raisedAt, &event.Sequence,
			&event.Condition.Kind, &severity,
			&event.Condition.Message, &event.Condition.Value); err != nil {
			return nil, errFactory.Wrap(ErrQueryFailed, err)
		}
		event.RaisedAt = time.Unix(raisedAt, 0)
		event.Condition.Severity = severityFromString(severity)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}

	return events, nil
}

func (r *repository) Close() error {
	errFactory := errors.New()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if r.flushTicker != nil {
		close(r.shutdownChan)
		r.flushTicker.Stop()
		<-r.flushDoneChan
	} else {
		r.mu.Lock()
		err := r.flush()
		r.mu.Unlock()
		if err != nil {
			return err
		}
	}

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errFactory.WithData(ErrStorageClose, err.Error())
	}

	if err := r.db.Close(); err != nil {
		return errFactory.WithData(ErrStorageClose, err.Error())
	}

	logger.Info().Msg("Alarm history repository closed gracefully")

	return nil
}

func (r *repository) flusher() {
	defer close(r.flushDoneChan)

	for {
		select {
		case <-r.flushTicker.C:
			r.mu.Lock()
			if err := r.flush(); err != nil {
				logger.Error().Err(err).Msg("periodic history flush failed")
			}
			r.mu.Unlock()
		case <-r.shutdownChan:
			r.mu.Lock()
			if err := r.flush(); err != nil {
				logger.Error().Err(err).Msg("final history flush failed")
			}
			r.mu.Unlock()
			return
		}
	}
}

// flush writes the buffered events in one transaction. Callers hold r.mu.
func (r *repository) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.Prepare(insertEventSQL)
	if err != nil {
		if err := tx.Rollback(); err != nil {
			logger.Error().Err(err).Msg("failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for _, event := range r.buffer {
		if _, err := stmt.Exec(
			event.ID,
			event.RaisedAt.Unix(),
			int64(event.Sequence),
			string(event.Condition.Kind),
			event.Condition.Severity.String(),
			event.Condition.Message,
			event.Condition.Value,
		); err != nil {
			if err := tx.Rollback(); err != nil {
				logger.Error().Err(err).Msg("failed to roll back transaction")
			}
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	logger.Debug().Int("records", len(r.buffer)).Msg("Flushed alarm events to database")
	r.buffer = r.buffer[:0]

	return nil
}

func severityFromString(s string) clinical.Severity {
	switch s {
	case "alarm":
		return clinical.SeverityAlarm
	case "warning":
		return clinical.SeverityWarning
	default:
		return clinical.SeverityInfo
	}
}
