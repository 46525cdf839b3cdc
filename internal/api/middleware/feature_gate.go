package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Optional features that depend on deployment configuration.
const (
	FeatureInteractionLog = "interaction_log"
)

type FeatureChecker interface {
	FeatureEnabled(feature string) bool
}

// Features is a static FeatureChecker built at startup.
type Features map[string]bool

func (f Features) FeatureEnabled(feature string) bool { return f[feature] }

// RequireFeature answers 503 when feature is not enabled in this deployment.
func RequireFeature(checker FeatureChecker, feature string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker == nil || !checker.FeatureEnabled(feature) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": feature + " is not enabled",
			})
			return
		}
		c.Next()
	}
}
