package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/pageflow/internal/models"
)

type UploadHistoryRepository interface {
	Create(ctx context.Context, rec *models.UploadRecord) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]*models.UploadRecord, error)
	ListByPage(ctx context.Context, pageID string, limit int) ([]*models.UploadRecord, error)
	Stats(ctx context.Context, since time.Time) (*models.UploadStats, error)
}

type uploadHistoryRepository struct {
	db *sql.DB
}

func NewUploadHistoryRepository(db *sql.DB) UploadHistoryRepository {
	return &uploadHistoryRepository{db: db}
}

func (r *uploadHistoryRepository) Create(ctx context.Context, rec *models.UploadRecord) (int64, error) {
	query := `INSERT INTO upload_history
		(page_id, page_name, file_path, file_name, content_kind, video_id, video_url, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		rec.PageID, rec.PageName, rec.FilePath, rec.FileName,
		rec.ContentKind, rec.VideoID, rec.VideoURL, rec.Status, rec.ErrorMessage)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return res.LastInsertId()
}

func (r *uploadHistoryRepository) ListRecent(ctx context.Context, limit int) ([]*models.UploadRecord, error) {
	query := `SELECT id, page_id, page_name, file_path, file_name, content_kind,
			video_id, video_url, status, error_message, created_at
		FROM upload_history ORDER BY id DESC LIMIT ?`
	return r.list(ctx, query, normalizeLimit(limit))
}

func (r *uploadHistoryRepository) ListByPage(ctx context.Context, pageID string, limit int) ([]*models.UploadRecord, error) {
	query := `SELECT id, page_id, page_name, file_path, file_name, content_kind,
			video_id, video_url, status, error_message, created_at
		FROM upload_history WHERE page_id = ? ORDER BY id DESC LIMIT ?`
	return r.list(ctx, query, pageID, normalizeLimit(limit))
}

func (r *uploadHistoryRepository) Stats(ctx context.Context, since time.Time) (*models.UploadStats, error) {
	stats := &models.UploadStats{
		ByPage: make(map[string]int),
		ByDay:  make(map[string]int),
	}

	query := `SELECT page_name, status, DATE(created_at)
		FROM upload_history WHERE created_at >= ?`

	// created_at is CURRENT_TIMESTAMP text, so the bound value must be UTC
	// in the same layout.
	rows, err := r.db.QueryContext(ctx, query, since.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var pageName, status, day string
		if err := rows.Scan(&pageName, &status, &day); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		stats.Total++
		switch status {
		case models.UploadStatusSuccess:
			stats.Succeeded++
		case models.UploadStatusCancelled:
			stats.Cancelled++
		default:
			stats.Failed++
		}
		stats.ByPage[pageName]++
		stats.ByDay[day]++
	}
	return stats, rows.Err()
}

func (r *uploadHistoryRepository) list(ctx context.Context, query string, args ...any) ([]*models.UploadRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var recs []*models.UploadRecord
	for rows.Next() {
		var rec models.UploadRecord
		err := rows.Scan(&rec.ID, &rec.PageID, &rec.PageName, &rec.FilePath, &rec.FileName,
			&rec.ContentKind, &rec.VideoID, &rec.VideoURL, &rec.Status, &rec.ErrorMessage, &rec.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
