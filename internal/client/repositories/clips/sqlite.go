package clips

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/clipvault/internal/client/models"
	"github.com/dmitrijs2005/clipvault/internal/common"
	"github.com/dmitrijs2005/clipvault/internal/dbx"
)

const summaryColumns = `id, mime_type, preview_handle, digest, captured_at, status, length(media)`

const displayOrder = ` ORDER BY captured_at DESC, id DESC`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, clip *models.Clip) (int64, error) {
	query := `INSERT INTO clips (media, mime_type, preview_handle, digest, captured_at, status)
		VALUES (?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		clip.Media, clip.MIMEType, clip.PreviewHandle, clip.Digest,
		clip.CapturedAt.UnixMilli(), string(clip.Status))
	if err != nil {
		return 0, fmt.Errorf("failed to insert clip: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted clip id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) SetPreviewHandle(ctx context.Context, id int64, handle string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE clips SET preview_handle = ? WHERE id = ?`, handle, id)
	if err != nil {
		return fmt.Errorf("failed to set preview handle: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.Clip, error) {
	query := `SELECT ` + summaryColumns + `, media FROM clips WHERE id = ?`

	var c models.Clip
	var capturedAt int64
	var status string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.MIMEType, &c.PreviewHandle, &c.Digest, &capturedAt, &status, &c.Size, &c.Media)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clip %d: %w", id, err)
	}

	c.CapturedAt = time.UnixMilli(capturedAt)
	if c.Status, err = models.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("clip %d: %w", id, err)
	}
	return &c, nil
}

func (r *SQLiteRepository) GetStatus(ctx context.Context, id int64) (models.Status, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM clips WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get clip status %d: %w", id, err)
	}
	return models.ParseStatus(status)
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id int64, status models.Status) error {
	res, err := r.db.ExecContext(ctx, `UPDATE clips SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update clip status: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64) (string, bool, error) {
	var handle string
	err := r.db.QueryRowContext(ctx, `DELETE FROM clips WHERE id = ? RETURNING preview_handle`, id).Scan(&handle)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to delete clip: %w", err)
	}
	return handle, true, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Clip, error) {
	return r.query(ctx, `SELECT `+summaryColumns+` FROM clips`+displayOrder)
}

func (r *SQLiteRepository) GetByStatus(ctx context.Context, statuses ...models.Status) ([]models.Clip, error) {
	if len(statuses) == 0 {
		return []models.Clip{}, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		placeholders[i] = "?"
		args[i] = string(s)
	}

	query := `SELECT ` + summaryColumns + ` FROM clips WHERE status IN (` +
		strings.Join(placeholders, ", ") + `)` + displayOrder
	return r.query(ctx, query, args...)
}

func (r *SQLiteRepository) ResetStatus(ctx context.Context, from, to models.Status) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE clips SET status = ? WHERE status = ?`, string(to), string(from))
	if err != nil {
		return 0, fmt.Errorf("failed to reset clip status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]models.Clip, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select clips: %w", err)
	}
	defer rows.Close()

	result := []models.Clip{}
	for rows.Next() {
		var c models.Clip
		var capturedAt int64
		var status string
		if err := rows.Scan(&c.ID, &c.MIMEType, &c.PreviewHandle, &c.Digest, &capturedAt, &status, &c.Size); err != nil {
			return nil, fmt.Errorf("failed to scan clip row: %w", err)
		}
		c.CapturedAt = time.UnixMilli(capturedAt)
		st, err := models.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("clip %d: %w", c.ID, err)
		}
		c.Status = st
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clip rows: %w", err)
	}
	return result, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
