package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/forecast/ingestion/internal/interfaces/http/dto"
)

// APIKeyHeader carries the agent's shared key
const APIKeyHeader = "X-API-Key"

// APIKeyAuth rejects requests that do not present the configured API key.
// With an empty configured key the middleware is a no-op, for development.
func APIKeyAuth(expectedKey string) gin.HandlerFunc {
	expected := []byte(expectedKey)
	return func(c *gin.Context) {
		if len(expected) == 0 {
			c.Next()
			return
		}
		presented := []byte(c.GetHeader(APIKeyHeader))
		if subtle.ConstantTimeCompare(presented, expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse(dto.ErrCodeUnauthorized, "Missing or invalid API key"))
			return
		}
		c.Next()
	}
}
