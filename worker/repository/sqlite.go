package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chatWorker/worker/models"
)

// SQLiteRepo stores updated_at as unix milliseconds so stale comparisons
// stay numeric.
type SQLiteRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db, now: time.Now}
}

func (r *SQLiteRepo) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			message_id TEXT NOT NULL,
			kind       TEXT NOT NULL,
			language   TEXT NOT NULL,
			status     TEXT NOT NULL,
			result     TEXT,
			attempt    TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (message_id, kind, language)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status, updated_at)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure task schema: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepo) GetTask(ctx context.Context, key models.TaskKey) (*models.TaskRecord, error) {
	query := `
		SELECT status, result, updated_at
		FROM tasks
		WHERE message_id = ? AND kind = ? AND language = ?
	`

	var (
		status    string
		result    sql.NullString
		updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, query, key.MessageID, string(key.Kind), key.Language).
		Scan(&status, &result, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	task := &models.TaskRecord{
		Key:       key,
		Status:    models.TaskStatus(status),
		UpdatedAt: time.UnixMilli(updatedAt).UTC(),
	}
	if result.Valid {
		task.Result = &result.String
	}
	return task, nil
}

func (r *SQLiteRepo) ClaimTask(ctx context.Context, key models.TaskKey, attempt string, staleBefore time.Time) (bool, error) {
	query := `
		INSERT INTO tasks (message_id, kind, language, status, result, attempt, updated_at)
		VALUES (?, ?, ?, ?, NULL, ?, ?)
		ON CONFLICT (message_id, kind, language) DO UPDATE
		SET status = excluded.status, result = NULL, attempt = excluded.attempt, updated_at = excluded.updated_at
		WHERE tasks.status <> excluded.status OR tasks.updated_at < ?
	`

	result, err := r.db.ExecContext(ctx, query,
		key.MessageID,
		string(key.Kind),
		key.Language,
		string(models.StatusProcessing),
		attempt,
		r.now().UnixMilli(),
		staleMillis(staleBefore),
	)
	if err != nil {
		return false, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRepo) CompleteTask(ctx context.Context, key models.TaskKey, attempt, output string) error {
	query := `
		UPDATE tasks
		SET status = ?, result = ?, updated_at = ?
		WHERE message_id = ? AND kind = ? AND language = ? AND status = ? AND attempt = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(models.StatusDone),
		output,
		r.now().UnixMilli(),
		key.MessageID,
		string(key.Kind),
		key.Language,
		string(models.StatusProcessing),
		attempt,
	)
	if err != nil {
		return err
	}

	return r.checkAffected(ctx, result, key)
}

func (r *SQLiteRepo) FailTask(ctx context.Context, key models.TaskKey, attempt string) error {
	query := `
		UPDATE tasks
		SET status = ?, result = NULL, updated_at = ?
		WHERE message_id = ? AND kind = ? AND language = ? AND status <> ? AND attempt = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(models.StatusFailed),
		r.now().UnixMilli(),
		key.MessageID,
		string(key.Kind),
		key.Language,
		string(models.StatusDone),
		attempt,
	)
	if err != nil {
		return err
	}

	return r.checkAffected(ctx, result, key)
}

func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepo) checkAffected(ctx context.Context, result sql.Result, key models.TaskKey) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missedTransition(ctx, r, key)
	}
	return nil
}

// staleMillis maps the zero time to a bound no row can be older than.
func staleMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
