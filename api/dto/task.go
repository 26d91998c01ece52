package dto

import "errors"

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidKind  = errors.New("invalid task kind")
)

type TaskResponse struct {
	MessageID string  `json:"message_id"`
	Kind      string  `json:"kind"`
	Language  string  `json:"language"`
	Status    string  `json:"status"`
	Result    *string `json:"result,omitempty"`
	UpdatedAt string  `json:"updated_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}
