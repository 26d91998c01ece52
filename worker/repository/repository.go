package repository

import (
	"context"
	"errors"
	"time"

	"chatWorker/worker/models"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskAlreadyExists = errors.New("task already exists")
	ErrInvalidTransition = errors.New("invalid task status transition")
)

// Repository is the durable task table. ClaimTask is the only write that may
// create a row, and it does so atomically against concurrent claimers.
type Repository interface {
	EnsureSchema(ctx context.Context) error
	GetTask(ctx context.Context, key models.TaskKey) (*models.TaskRecord, error)
	// ClaimTask inserts or restarts the row in processing state under the
	// given attempt token. It returns false when another attempt holds the
	// row in processing and that row was last touched at or after staleBefore.
	ClaimTask(ctx context.Context, key models.TaskKey, attempt string, staleBefore time.Time) (bool, error)
	// CompleteTask and FailTask only apply while attempt still owns the row.
	CompleteTask(ctx context.Context, key models.TaskKey, attempt, result string) error
	FailTask(ctx context.Context, key models.TaskKey, attempt string) error
	Close() error
}

// missedTransition explains why a conditional update touched no row.
func missedTransition(ctx context.Context, repo Repository, key models.TaskKey) error {
	if _, err := repo.GetTask(ctx, key); err != nil {
		return err
	}
	return ErrInvalidTransition
}
