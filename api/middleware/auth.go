package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatWorker/api/dto"
)

// BasicAuth accepts any username with the configured password. An empty
// password leaves the routes open.
func BasicAuth(password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if password == "" {
			c.Next()
			return
		}

		_, given, ok := c.Request.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(given), []byte(password)) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="tasks"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				TraceID: GetTraceID(c),
			})
			return
		}

		c.Next()
	}
}
