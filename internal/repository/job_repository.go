package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/maheshrc27/pageflow/internal/models"
)

// JobRepository persists job snapshots as JSON documents keyed by
// (kind, page_id). The payload column carries every job field so older
// rows simply fall back to defaults when new fields appear.
type JobRepository interface {
	Get(ctx context.Context, kind models.JobKind, pageID string) (*models.JobSnapshot, error)
	List(ctx context.Context) ([]*models.JobSnapshot, error)
	Save(ctx context.Context, snap *models.JobSnapshot) error
	Delete(ctx context.Context, kind models.JobKind, pageID string) error
}

type jobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Get(ctx context.Context, kind models.JobKind, pageID string) (*models.JobSnapshot, error) {
	query := `SELECT payload FROM jobs WHERE kind = ? AND page_id = ?`
	row := r.db.QueryRowContext(ctx, query, string(kind), pageID)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	var snap models.JobSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &snap, nil
}

func (r *jobRepository) List(ctx context.Context) ([]*models.JobSnapshot, error) {
	query := `SELECT payload FROM jobs ORDER BY kind, page_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var snaps []*models.JobSnapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		var snap models.JobSnapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			// A corrupt row should not take the rest of the jobs down.
			slog.Warn("skipping unreadable job row", "error", err.Error())
			continue
		}
		snaps = append(snaps, &snap)
	}
	return snaps, rows.Err()
}

func (r *jobRepository) Save(ctx context.Context, snap *models.JobSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	query := `INSERT INTO jobs (kind, page_id, payload, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (kind, page_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP`

	_, err = r.db.ExecContext(ctx, query, string(snap.Kind()), snap.PageID, string(payload))
	if err != nil {
		slog.Info(err.Error())
	}
	return err
}

func (r *jobRepository) Delete(ctx context.Context, kind models.JobKind, pageID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE kind = ? AND page_id = ?`, string(kind), pageID)
	if err != nil {
		slog.Info(err.Error())
	}
	return err
}
