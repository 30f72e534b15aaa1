package alarm

import (
	"database/sql"

	"codeberg.org/aulin/anesctl/internal/errors"
	"codeberg.org/aulin/anesctl/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS alarm_events (
	       id          TEXT PRIMARY KEY,
	       raised_at   INTEGER NOT NULL,
	       sequence    INTEGER NOT NULL,
	       kind        TEXT NOT NULL,
	       severity    TEXT NOT NULL,
	       message     TEXT NOT NULL,
	       value       REAL NOT NULL
	   );
	   CREATE INDEX IF NOT EXISTS idx_alarm_events_raised_at
	       ON alarm_events (raised_at);`

	insertEventSQL = `
    INSERT INTO alarm_events (
        id, raised_at, sequence,
        kind, severity, message, value
    ) VALUES (?, ?, ?, ?, ?, ?, ?)`
)

// InitSchema creates the history schema if it is not current
func InitSchema(db *sql.DB) error {
	errFactory := errors.New()

	version, err := getSchemaVersion(db)
	if err != nil {
		return err
	}
	if version == SchemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				logger.Debug().Err(err).Msg("failed to roll back schema transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, err.Error())
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, err.Error())
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	logger.Debug().Int("version", SchemaVersion).Msg("History schema initialized")

	return nil
}

func getSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name='schema_versions'
        )
    `).Scan(&exists)
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	return version, nil
}
