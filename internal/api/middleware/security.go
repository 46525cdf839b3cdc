package middleware

import (
	"github.com/gin-gonic/gin"
)

// The bundled page carries its script and styles inline and talks back to
// the same origin over fetch and websocket.
const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' 'unsafe-inline'; " +
	"style-src 'self' 'unsafe-inline'; " +
	"connect-src 'self' ws: wss:; " +
	"frame-ancestors 'none'"

// SecurityHeaders adds security headers to responses
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", contentSecurityPolicy)

		// Voice input on the page needs the microphone.
		c.Header("Permissions-Policy", "geolocation=(), camera=(), microphone=(self)")

		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
