// Package ledger owns every state transition of the task table. It is the
// single point that decides whether a request may run.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chatWorker/worker/apperrors"
	"chatWorker/worker/cache"
	"chatWorker/worker/models"
	"chatWorker/worker/repository"
)

var (
	// ErrAlreadyProcessing means another attempt holds the key; drop the request.
	ErrAlreadyProcessing = repository.ErrTaskAlreadyExists
	ErrEmptyResult       = errors.New("empty task result")
)

type ResultCache interface {
	Get(ctx context.Context, key models.TaskKey) (*models.TaskRecord, error)
	Set(ctx context.Context, record *models.TaskRecord) error
	Delete(ctx context.Context, key models.TaskKey) error
}

type Ledger struct {
	repo       repository.Repository
	results    ResultCache
	staleAfter time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewLedger builds a ledger. results may be nil to disable caching; a zero
// staleAfter never takes over a processing row.
func NewLedger(repo repository.Repository, results ResultCache, staleAfter time.Duration, logger *zap.Logger) *Ledger {
	return &Ledger{
		repo:       repo,
		results:    results,
		staleAfter: staleAfter,
		now:        time.Now,
		logger:     logger,
	}
}

// Lookup returns the record for key, or nil when none exists.
func (l *Ledger) Lookup(ctx context.Context, key models.TaskKey) (*models.TaskRecord, error) {
	if l.results != nil {
		record, err := l.results.Get(ctx, key)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l.logger.Warn("Result cache read failed",
				zap.String("task_key", key.String()),
				zap.Error(err),
			)
		}
	}

	record, err := l.repo.GetTask(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, nil
		}
		return nil, apperrors.Storage("ledger.lookup", "read task", err)
	}

	if record.Status == models.StatusDone {
		l.cacheResult(ctx, record)
	}
	return record, nil
}

// BeginProcessing atomically moves key into processing and returns the
// attempt that now owns it. It returns ErrAlreadyProcessing when another
// attempt already holds the key.
func (l *Ledger) BeginProcessing(ctx context.Context, key models.TaskKey) (models.Attempt, error) {
	var staleBefore time.Time
	if l.staleAfter > 0 {
		staleBefore = l.now().Add(-l.staleAfter)
	}

	attempt := models.Attempt{Key: key, Token: uuid.NewString()}
	started, err := l.repo.ClaimTask(ctx, key, attempt.Token, staleBefore)
	if err != nil {
		return models.Attempt{}, apperrors.Storage("ledger.begin", "claim task", err)
	}
	if !started {
		return models.Attempt{}, ErrAlreadyProcessing
	}

	if l.results != nil {
		if err := l.results.Delete(ctx, key); err != nil {
			l.logger.Warn("Result cache invalidation failed",
				zap.String("task_key", key.String()),
				zap.Error(err),
			)
		}
	}

	l.logger.Debug("Task processing started", zap.String("task_key", key.String()))
	return attempt, nil
}

// Complete records a successful attempt. Empty results are rejected, and an
// attempt superseded by a stale takeover gets ErrInvalidTransition.
func (l *Ledger) Complete(ctx context.Context, attempt models.Attempt, result string) error {
	if result == "" {
		return ErrEmptyResult
	}

	key := attempt.Key
	if err := l.repo.CompleteTask(ctx, key, attempt.Token, result); err != nil {
		return transitionError("ledger.complete", err)
	}

	l.cacheResult(ctx, &models.TaskRecord{
		Key:       key,
		Status:    models.StatusDone,
		Result:    &result,
		UpdatedAt: l.now().UTC(),
	})
	l.logger.Debug("Task completed", zap.String("task_key", key.String()))
	return nil
}

// Fail records a failed attempt and clears any stale result. Repeating it is
// safe; a superseded attempt gets ErrInvalidTransition and leaves the row alone.
func (l *Ledger) Fail(ctx context.Context, attempt models.Attempt) error {
	key := attempt.Key
	if err := l.repo.FailTask(ctx, key, attempt.Token); err != nil {
		return transitionError("ledger.fail", err)
	}

	l.logger.Debug("Task failed", zap.String("task_key", key.String()))
	return nil
}

func (l *Ledger) cacheResult(ctx context.Context, record *models.TaskRecord) {
	if l.results == nil {
		return
	}
	if err := l.results.Set(ctx, record); err != nil {
		l.logger.Warn("Result cache write failed",
			zap.String("task_key", record.Key.String()),
			zap.Error(err),
		)
	}
}

// transitionError keeps repository sentinels visible and classifies the rest
// as storage failures.
func transitionError(op string, err error) error {
	if errors.Is(err, repository.ErrTaskNotFound) || errors.Is(err, repository.ErrInvalidTransition) {
		return err
	}
	return apperrors.Storage(op, "update task", err)
}
