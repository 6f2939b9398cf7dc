package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/maheshrc27/pageflow/internal/models"
)

var (
	ErrTemplateNameTaken = errors.New("template name already exists")
	ErrDefaultTemplate   = errors.New("default template cannot be deleted")
	ErrTemplateNotFound  = errors.New("template not found")
)

type TemplateRepository interface {
	GetByID(ctx context.Context, id int64) (*models.ScheduleTemplate, error)
	GetDefault(ctx context.Context) (*models.ScheduleTemplate, error)
	List(ctx context.Context) ([]*models.ScheduleTemplate, error)
	Create(ctx context.Context, t *models.ScheduleTemplate) (int64, error)
	Update(ctx context.Context, t *models.ScheduleTemplate) error
	Delete(ctx context.Context, id int64) error
	SetDefault(ctx context.Context, id int64) error
}

type templateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) GetByID(ctx context.Context, id int64) (*models.ScheduleTemplate, error) {
	query := `SELECT id, name, times, days, random_offset_minutes, is_default, created_at
		FROM schedule_templates WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *templateRepository) GetDefault(ctx context.Context) (*models.ScheduleTemplate, error) {
	query := `SELECT id, name, times, days, random_offset_minutes, is_default, created_at
		FROM schedule_templates WHERE is_default = 1 LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query))
}

func (r *templateRepository) List(ctx context.Context) ([]*models.ScheduleTemplate, error) {
	query := `SELECT id, name, times, days, random_offset_minutes, is_default, created_at
		FROM schedule_templates ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var ts []*models.ScheduleTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ts = append(ts, t)
	}
	return ts, rows.Err()
}

func (r *templateRepository) Create(ctx context.Context, t *models.ScheduleTemplate) (int64, error) {
	if taken, err := r.nameTaken(ctx, t.Name, 0); err != nil {
		return 0, err
	} else if taken {
		return 0, ErrTemplateNameTaken
	}

	times, days := encodeLists(t)
	query := `INSERT INTO schedule_templates (name, times, days, random_offset_minutes, is_default)
		VALUES (?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, t.Name, times, days, t.RandomOffsetMinutes, boolToInt(t.IsDefault))
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return res.LastInsertId()
}

func (r *templateRepository) Update(ctx context.Context, t *models.ScheduleTemplate) error {
	if taken, err := r.nameTaken(ctx, t.Name, t.ID); err != nil {
		return err
	} else if taken {
		return ErrTemplateNameTaken
	}

	times, days := encodeLists(t)
	query := `UPDATE schedule_templates
		SET name = ?, times = ?, days = ?, random_offset_minutes = ?
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, t.Name, times, days, t.RandomOffsetMinutes, t.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func (r *templateRepository) Delete(ctx context.Context, id int64) error {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if t == nil {
		return ErrTemplateNotFound
	}
	if t.IsDefault {
		return ErrDefaultTemplate
	}

	_, err = r.db.ExecContext(ctx, `DELETE FROM schedule_templates WHERE id = ?`, id)
	if err != nil {
		slog.Info(err.Error())
	}
	return err
}

// SetDefault makes id the only default. Clearing before setting keeps the
// single-default invariant even if a previous write left two rows marked.
func (r *templateRepository) SetDefault(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE schedule_templates SET is_default = 0`); err != nil {
		slog.Info(err.Error())
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE schedule_templates SET is_default = 1 WHERE id = ?`, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTemplateNotFound
	}
	return tx.Commit()
}

func (r *templateRepository) nameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schedule_templates WHERE name = ? AND id != ?`,
		name, excludeID).Scan(&n)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return n > 0, nil
}

func (r *templateRepository) scanOne(row *sql.Row) (*models.ScheduleTemplate, error) {
	t, err := scanTemplate(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*models.ScheduleTemplate, error) {
	var t models.ScheduleTemplate
	var times, days string
	var isDefault int
	if err := row.Scan(&t.ID, &t.Name, &times, &days, &t.RandomOffsetMinutes, &isDefault, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.IsDefault = isDefault != 0
	json.Unmarshal([]byte(times), &t.Times)
	json.Unmarshal([]byte(days), &t.Days)
	return &t, nil
}

func encodeLists(t *models.ScheduleTemplate) (string, string) {
	times, _ := json.Marshal(t.Times)
	days, _ := json.Marshal(t.Days)
	return string(times), string(days)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
