package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/pageflow/internal/models"
)

// AppTokenRepository stores one long-lived user token per Facebook app.
// Access tokens and app secrets are encrypted before they reach this layer.
type AppTokenRepository interface {
	GetByAppName(ctx context.Context, appName string) (*models.AppToken, error)
	List(ctx context.Context) ([]*models.AppToken, error)
	ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]*models.AppToken, error)
	Upsert(ctx context.Context, t *models.AppToken) error
	Delete(ctx context.Context, appName string) error
}

type appTokenRepository struct {
	db *sql.DB
}

func NewAppTokenRepository(db *sql.DB) AppTokenRepository {
	return &appTokenRepository{db: db}
}

func (r *appTokenRepository) GetByAppName(ctx context.Context, appName string) (*models.AppToken, error) {
	query := `SELECT id, app_name, app_id, app_secret, access_token, token_expires_at, created_at
		FROM app_tokens WHERE app_name = ?`
	row := r.db.QueryRowContext(ctx, query, appName)

	var t models.AppToken
	err := row.Scan(&t.ID, &t.AppName, &t.AppID, &t.AppSecret, &t.AccessToken, &t.TokenExpiresAt, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &t, nil
}

func (r *appTokenRepository) List(ctx context.Context) ([]*models.AppToken, error) {
	query := `SELECT id, app_name, app_id, app_secret, access_token, token_expires_at, created_at
		FROM app_tokens ORDER BY app_name`
	return r.list(ctx, query)
}

func (r *appTokenRepository) ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]*models.AppToken, error) {
	query := `SELECT id, app_name, app_id, app_secret, access_token, token_expires_at, created_at
		FROM app_tokens WHERE token_expires_at IS NOT NULL AND token_expires_at < ?`
	return r.list(ctx, query, cutoff)
}

func (r *appTokenRepository) Upsert(ctx context.Context, t *models.AppToken) error {
	query := `INSERT INTO app_tokens (app_name, app_id, app_secret, access_token, token_expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (app_name) DO UPDATE SET
			app_id = excluded.app_id,
			app_secret = excluded.app_secret,
			access_token = excluded.access_token,
			token_expires_at = excluded.token_expires_at`

	_, err := r.db.ExecContext(ctx, query, t.AppName, t.AppID, t.AppSecret, t.AccessToken, t.TokenExpiresAt)
	if err != nil {
		slog.Info(err.Error())
	}
	return err
}

func (r *appTokenRepository) Delete(ctx context.Context, appName string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM app_tokens WHERE app_name = ?`, appName)
	if err != nil {
		slog.Info(err.Error())
	}
	return err
}

func (r *appTokenRepository) list(ctx context.Context, query string, args ...any) ([]*models.AppToken, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var ts []*models.AppToken
	for rows.Next() {
		var t models.AppToken
		err := rows.Scan(&t.ID, &t.AppName, &t.AppID, &t.AppSecret, &t.AccessToken, &t.TokenExpiresAt, &t.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ts = append(ts, &t)
	}
	return ts, rows.Err()
}
