package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatWorker/api/middleware"
)

func NewRouter(h *TaskHandler, password string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.TraceID(), middleware.Recovery(logger), middleware.Logging(logger))

	r.GET("/health", h.Health)

	tasks := r.Group("/tasks", middleware.BasicAuth(password))
	tasks.GET("/:kind/:language/:message_id", h.Status)

	return r
}
