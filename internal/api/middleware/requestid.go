package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/themobileprof/commandbot/internal/router"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID accepts a caller-supplied UUID or mints one, echoes it in the
// response and threads it into the request context for the router.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}

		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(router.WithRequestID(c.Request.Context(), id))

		c.Next()
	}
}
