package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatWorker/worker/models"
)

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			message_id TEXT NOT NULL,
			kind       TEXT NOT NULL,
			language   TEXT NOT NULL,
			status     TEXT NOT NULL,
			result     TEXT,
			attempt    TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (message_id, kind, language)
		)`,
		`ALTER TABLE tasks ADD COLUMN IF NOT EXISTS attempt TEXT NOT NULL DEFAULT ''`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status, updated_at)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure task schema: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepo) GetTask(ctx context.Context, key models.TaskKey) (*models.TaskRecord, error) {
	query := `
		SELECT status, result, updated_at
		FROM tasks
		WHERE message_id = $1 AND kind = $2 AND language = $3
	`

	task := models.TaskRecord{Key: key}
	err := r.db.QueryRow(ctx, query, key.MessageID, key.Kind, key.Language).
		Scan(&task.Status, &task.Result, &task.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	return &task, nil
}

func (r *PostgresRepo) ClaimTask(ctx context.Context, key models.TaskKey, attempt string, staleBefore time.Time) (bool, error) {
	query := `
		INSERT INTO tasks (message_id, kind, language, status, result, attempt, updated_at)
		VALUES ($1, $2, $3, $4, NULL, $5, NOW())
		ON CONFLICT (message_id, kind, language) DO UPDATE
		SET status = EXCLUDED.status, result = NULL, attempt = EXCLUDED.attempt, updated_at = NOW()
		WHERE tasks.status <> EXCLUDED.status OR tasks.updated_at < $6
	`

	result, err := r.db.Exec(ctx, query,
		key.MessageID,
		key.Kind,
		key.Language,
		models.StatusProcessing,
		attempt,
		staleBefore,
	)
	if err != nil {
		return false, err
	}

	return result.RowsAffected() == 1, nil
}

func (r *PostgresRepo) CompleteTask(ctx context.Context, key models.TaskKey, attempt, output string) error {
	query := `
		UPDATE tasks
		SET status = $1, result = $2, updated_at = NOW()
		WHERE message_id = $3 AND kind = $4 AND language = $5 AND status = $6 AND attempt = $7
	`

	result, err := r.db.Exec(ctx, query,
		models.StatusDone,
		output,
		key.MessageID,
		key.Kind,
		key.Language,
		models.StatusProcessing,
		attempt,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return missedTransition(ctx, r, key)
	}
	return nil
}

func (r *PostgresRepo) FailTask(ctx context.Context, key models.TaskKey, attempt string) error {
	query := `
		UPDATE tasks
		SET status = $1, result = NULL, updated_at = NOW()
		WHERE message_id = $2 AND kind = $3 AND language = $4 AND status <> $5 AND attempt = $6
	`

	result, err := r.db.Exec(ctx, query,
		models.StatusFailed,
		key.MessageID,
		key.Kind,
		key.Language,
		models.StatusDone,
		attempt,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return missedTransition(ctx, r, key)
	}
	return nil
}

func (r *PostgresRepo) Close() error {
	r.db.Close()
	return nil
}
