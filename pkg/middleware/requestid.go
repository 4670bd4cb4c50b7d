package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader is the header carrying the per-request correlation id,
// generated if the caller didn't supply one.
const RequestIDHeader = "X-Request-ID"

// RequestID stamps every response with a correlation id, reusing one
// supplied by the caller (useful when voicekeepd sits behind a reverse
// proxy that already assigns one).
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}
