package service

import (
	"context"
	"time"

	"chatWorker/api/dto"
	"chatWorker/worker/models"
)

// TaskLookup reads ledger records; *ledger.Ledger satisfies it.
type TaskLookup interface {
	Lookup(ctx context.Context, key models.TaskKey) (*models.TaskRecord, error)
}

type TaskService struct {
	ledger TaskLookup
}

func NewTaskService(ledger TaskLookup) *TaskService {
	return &TaskService{ledger: ledger}
}

// GetTask returns the ledger record for one task key.
func (s *TaskService) GetTask(ctx context.Context, kind, language, messageID string) (*dto.TaskResponse, error) {
	taskKind := models.TaskKind(kind)
	if !taskKind.Valid() {
		return nil, dto.ErrInvalidKind
	}

	record, err := s.ledger.Lookup(ctx, models.NewTaskKey(messageID, taskKind, language))
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, dto.ErrTaskNotFound
	}

	return toResponse(record), nil
}

func toResponse(record *models.TaskRecord) *dto.TaskResponse {
	return &dto.TaskResponse{
		MessageID: record.Key.MessageID,
		Kind:      string(record.Key.Kind),
		Language:  record.Key.Language,
		Status:    string(record.Status),
		Result:    record.Result,
		UpdatedAt: record.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
