package telemetry

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/mutker/obdmon/internal/errors"
	"codeberg.org/mutker/obdmon/internal/logger"

	_ "github.com/mattn/go-sqlite3"
)

const defaultDirPerm = 0o755

type sqliteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// NewRepository opens (creating if needed) the local snapshot archive.
func NewRepository(dbPath string) (Repository, error) {
	if dbPath == "" {
		return nil, errors.New(ErrInvalidDBPath)
	}

	logger.Debug().Msgf("Initializing snapshot archive at: %s", dbPath)

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), defaultDirPerm); err != nil {
		return nil, errors.Wrap(ErrStorageInit, err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Wrap(ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()

		return nil, err
	}

	return &sqliteRepository{
		db: db,
	}, nil
}

func (r *sqliteRepository) Store(ctx context.Context, snapshot *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO snapshots (
            timestamp, engine_off, engine_idle, engine_non_idle,
            rpm_min, rpm_mean, rpm_max,
            speed_min, speed_mean, speed_max
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(timestamp) DO UPDATE SET
            engine_off = excluded.engine_off,
            engine_idle = excluded.engine_idle,
            engine_non_idle = excluded.engine_non_idle,
            rpm_min = excluded.rpm_min,
            rpm_mean = excluded.rpm_mean,
            rpm_max = excluded.rpm_max,
            speed_min = excluded.speed_min,
            speed_mean = excluded.speed_mean,
            speed_max = excluded.speed_max
    `,
		snapshot.Timestamp.Unix(),
		snapshot.EngineOff,
		snapshot.EngineIdle,
		snapshot.EngineNonIdle,
		snapshot.EngineRpmMin,
		snapshot.EngineRpmMean,
		snapshot.EngineRpmMax,
		snapshot.EngineSpeedMin,
		snapshot.EngineSpeedMean,
		snapshot.EngineSpeedMax,
	)
	if err != nil {
		return errors.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *sqliteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.Close(); err != nil {
		return errors.Wrap(ErrStorageClose, err)
	}

	return nil
}
