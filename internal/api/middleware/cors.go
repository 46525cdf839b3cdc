package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

// CORS adds CORS headers to responses. An empty allow list reflects any
// origin, which suits the bundled page and local tools.
func CORS(allowedOrigins ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		switch {
		case origin == "":
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case OriginAllowed(allowedOrigins, origin):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Origin, "+RequestIDHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// OriginAllowed reports whether a non-empty Origin header passes the allow
// list. An empty list allows every origin.
func OriginAllowed(allowedOrigins []string, origin string) bool {
	return len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
}
