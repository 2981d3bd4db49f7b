package middleware

import (
	"net/http"
	"strings"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/logging"
	"github.com/gin-gonic/gin"
)

// CORSOptions configures CORS. With AllowAll every origin is accepted.
type CORSOptions struct {
	Origins     []string
	AllowAll    bool
	Credentials bool
	Methods     []string
	Headers     []string
}

var (
	defaultCORSMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	defaultCORSHeaders = []string{"Content-Type", "Authorization", "X-API-Key", "X-Request-ID"}
)

// CORS answers preflight requests and decorates responses for allowed
// origins. Requests without an Origin header pass untouched; disallowed
// origins get no CORS headers and their preflights are refused.
func CORS(opts CORSOptions) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(opts.Origins))
	for _, o := range opts.Origins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	methods := opts.Methods
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}
	headers := opts.Headers
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""

		if origin == "" {
			c.Next()
			return
		}

		_, ok := allowed[origin]
		if !opts.AllowAll && !ok {
			logging.FromContext(c).WithField("origin", origin).Warn("CORS blocked origin")
			if preflight {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		h := c.Writer.Header()
		if opts.AllowAll && !opts.Credentials {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		}
		if opts.Credentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}

		if preflight {
			h.Set("Access-Control-Allow-Methods", strings.Join(methods, ", "))
			h.Set("Access-Control-Allow-Headers", strings.Join(headers, ", "))
			h.Set("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
