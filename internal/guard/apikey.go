// Package guard provides gin handlers that admit or reject a request before
// it reaches the route handler: API keys, JWT bearer tokens and role claims.
package guard

import (
	"crypto/subtle"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/apperr"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/logging"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/middleware"
	"github.com/gin-gonic/gin"
)

// APIKeyHeader is the header APIKey reads.
const APIKeyHeader = "X-API-Key"

// APIKey admits requests whose x-api-key header equals key.
func APIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(APIKeyHeader)
		if provided == "" {
			middleware.Fail(c, apperr.Unauthorized("API key required. Please provide x-api-key header."))
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			logging.FromContext(c).WithField("client_ip", c.ClientIP()).Warn("invalid API key")
			middleware.Fail(c, apperr.Unauthorized("Invalid API key"))
			return
		}
		c.Next()
	}
}
