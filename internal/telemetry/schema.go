package telemetry

import (
	"database/sql"

	"codeberg.org/mutker/obdmon/internal/errors"
)

// initSchema initializes the database schema for the snapshot archive
func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS snapshots (
            timestamp INTEGER PRIMARY KEY,
            engine_off INTEGER,
            engine_idle INTEGER,
            engine_non_idle INTEGER,
            rpm_min INTEGER,
            rpm_mean INTEGER,
            rpm_max INTEGER,
            speed_min INTEGER,
            speed_mean INTEGER,
            speed_max INTEGER
        )
    `)
	if err != nil {
		return errors.Wrap(ErrStorageInit, err)
	}

	return nil
}
