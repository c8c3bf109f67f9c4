package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/domain/offline"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/ports"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/infrastructure/db"
)

type queueRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewQueueRepository creates the durable write queue of pending mutating
// requests. The queue is append/delete-only: rows are never updated.
func NewQueueRepository(database *db.Database, logger *logrus.Logger) ports.WriteQueue {
	return &queueRepository{
		db:     database,
		logger: logger,
	}
}

func (r *queueRepository) Enqueue(ctx context.Context, action *offline.QueuedAction) error {
	if action.Timestamp.IsZero() {
		action.Timestamp = time.Now()
	}

	headersJSON, err := json.Marshal(action.Headers)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO offline_actions (id, url, method, headers, body, queued_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = r.db.DB.ExecContext(ctx, query,
		action.ID,
		action.URL,
		action.Method,
		headersJSON,
		action.Body,
		action.Timestamp,
	)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"action_id": action.ID, "url": action.URL, "method": action.Method}).WithError(err).Error("db: failed to enqueue offline action")
		}
		return err
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"action_id": action.ID, "url": action.URL, "method": action.Method}).Info("db: offline action queued")
	}
	return nil
}

// List returns all pending actions in enqueue order.
func (r *queueRepository) List(ctx context.Context) ([]*offline.QueuedAction, error) {
	query := `
		SELECT id, url, method, headers, body, queued_at
		FROM offline_actions
		ORDER BY queued_at ASC, id ASC`

	rows, err := r.db.DB.QueryxContext(ctx, query)
	if err != nil {
		if r.logger != nil {
			r.logger.WithError(err).Error("db: failed to list offline actions")
		}
		return nil, err
	}
	defer rows.Close()

	var actions []*offline.QueuedAction
	for rows.Next() {
		var (
			action      offline.QueuedAction
			headersJSON []byte
		)
		if err := rows.Scan(&action.ID, &action.URL, &action.Method, &headersJSON, &action.Body, &action.Timestamp); err != nil {
			return nil, err
		}
		if len(headersJSON) > 0 {
			if err := json.Unmarshal(headersJSON, &action.Headers); err != nil {
				// Headers are best-effort on replay; a corrupt map is not
				// worth losing the action over.
				if r.logger != nil {
					r.logger.WithFields(logrus.Fields{"action_id": action.ID}).WithError(err).Warn("db: dropping unreadable headers on queued action")
				}
			}
		}
		actions = append(actions, &action)
	}
	return actions, rows.Err()
}

func (r *queueRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.DB.ExecContext(ctx, `DELETE FROM offline_actions WHERE id = $1`, id)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"action_id": id}).WithError(err).Error("db: failed to delete offline action")
		}
		return err
	}
	return nil
}

func (r *queueRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.DB.QueryRowxContext(ctx, `SELECT COUNT(*) FROM offline_actions`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
