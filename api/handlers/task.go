package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatWorker/api/dto"
	"chatWorker/api/middleware"
)

type TaskService interface {
	GetTask(ctx context.Context, kind, language, messageID string) (*dto.TaskResponse, error)
}

type TaskHandler struct {
	service TaskService
	logger  *zap.Logger
}

func NewTaskHandler(service TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: service,
		logger:  logger,
	}
}

func (h *TaskHandler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Status serves GET /tasks/:kind/:language/:message_id.
func (h *TaskHandler) Status(c *gin.Context) {
	traceID := middleware.GetTraceID(c)

	resp, err := h.service.GetTask(c.Request.Context(), c.Param("kind"), c.Param("language"), c.Param("message_id"))
	if err != nil {
		switch {
		case errors.Is(err, dto.ErrInvalidKind):
			h.handleError(c, "Unknown task kind", err, traceID, http.StatusBadRequest)
		case errors.Is(err, dto.ErrTaskNotFound):
			h.handleError(c, "Task not found", err, traceID, http.StatusNotFound)
		default:
			h.handleError(c, "Failed to get task status", err, traceID, http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *TaskHandler) handleError(c *gin.Context, message string, err error, traceID string, status int) {
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, zap.String("trace_id", traceID), zap.Error(err))
	} else {
		h.logger.Debug(message, zap.String("trace_id", traceID), zap.Error(err))
	}

	c.JSON(status, dto.ErrorResponse{
		Error:   message,
		TraceID: traceID,
	})
}
