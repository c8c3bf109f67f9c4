package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/domain/offline"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/ports"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/infrastructure/db"
)

type snapshotRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewSnapshotRepository creates the durable store of last-known-good API
// read responses, keyed by endpoint path.
func NewSnapshotRepository(database *db.Database, logger *logrus.Logger) ports.SnapshotStore {
	return &snapshotRepository{
		db:     database,
		logger: logger,
	}
}

// Save upserts the snapshot for its endpoint; a newer capture replaces the
// previous one.
func (r *snapshotRepository) Save(ctx context.Context, snap *offline.Snapshot) error {
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}

	query := `
		INSERT INTO api_data (endpoint, data, captured_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (endpoint)
		DO UPDATE SET data = EXCLUDED.data, captured_at = EXCLUDED.captured_at`

	_, err := r.db.DB.ExecContext(ctx, query, snap.Endpoint, snap.Data, snap.Timestamp)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"endpoint": snap.Endpoint}).WithError(err).Error("db: failed to save snapshot")
		}
		return err
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"endpoint": snap.Endpoint, "bytes": len(snap.Data)}).Debug("db: snapshot saved")
	}
	return nil
}

// Get returns the snapshot for endpoint, ok=false when none was ever saved.
func (r *snapshotRepository) Get(ctx context.Context, endpoint string) (*offline.Snapshot, bool, error) {
	query := `SELECT endpoint, data, captured_at FROM api_data WHERE endpoint = $1`

	var snap offline.Snapshot
	err := r.db.DB.QueryRowxContext(ctx, query, endpoint).Scan(&snap.Endpoint, &snap.Data, &snap.Timestamp)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"endpoint": endpoint}).WithError(err).Error("db: failed to load snapshot")
		}
		return nil, false, err
	}
	return &snap, true, nil
}
