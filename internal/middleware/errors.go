// Package middleware holds the gin middleware shared by the services: error
// rendering, request logging, metrics, CORS, rate limiting, security headers
// and the interceptor-style wrappers.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/apperr"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Fail records err on the context and stops the chain. A responder renders it.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorResponder renders the last recorded error as
// {"statusCode","message","error"}.
func ErrorResponder() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		e, ok := pending(c)
		if !ok {
			return
		}
		logFailure(c, e)
		c.JSON(e.Status, gin.H{
			"statusCode": e.Status,
			"message":    e.Body(),
			"error":      http.StatusText(e.Status),
		})
	}
}

// ErrorEnvelope renders the last recorded error as a success=false envelope
// carrying the request id, timestamp and path. Every failure is logged with
// the request details first.
func ErrorEnvelope() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		e, ok := pending(c)
		if !ok {
			return
		}
		logging.FromContext(c).WithFields(logrus.Fields{
			"error":      e.Error(),
			"status":     e.Status,
			"method":     c.Request.Method,
			"url":        c.Request.URL.RequestURI(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}).Error("request failed")

		c.JSON(e.Status, gin.H{
			"success":    false,
			"statusCode": e.Status,
			"message":    e.Body(),
			"requestId":  RequestID(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"path":       c.Request.URL.RequestURI(),
		})
	}
}

// Recovery turns a panic into a 500 recorded on the context.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logging.FromContext(c).WithField("stack", string(debug.Stack())).Errorf("panic recovered: %v", recovered)
		Fail(c, apperr.Internal(fmt.Errorf("panic: %v", recovered)))
	})
}

func pending(c *gin.Context) (*apperr.Error, bool) {
	if len(c.Errors) == 0 || c.Writer.Written() {
		return nil, false
	}
	return apperr.From(c.Errors.Last().Err), true
}

func logFailure(c *gin.Context, e *apperr.Error) {
	entry := logging.FromContext(c).WithField("status", e.Status)
	if e.Status >= http.StatusInternalServerError {
		entry.WithError(e).Error("request failed")
		return
	}
	entry.Warn(e.Message)
}
