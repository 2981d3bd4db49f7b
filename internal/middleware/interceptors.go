package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UserKey is where SimpleAuth stores the session user.
const UserKey = "user"

// SessionUser is the user SimpleAuth attaches.
type SessionUser struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// SimpleAuth accepts any request carrying an Authorization header and
// attaches a fixed demo user. Requests without one are rejected with 401.
func SimpleAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			logging.FromContext(c).Warn("no authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Please login first!"})
			return
		}
		c.Set(UserKey, SessionUser{ID: 1, Name: "John Doe"})
		c.Next()
	}
}

// Explain logs what happens around a handler: before it runs, and after with
// the outcome and timing.
func Explain() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logging.FromContext(c)
		start := time.Now()

		log.WithField("handler", c.HandlerName()).Info("step 1: request reached the interceptor")
		log.Info("step 2: handing over to the handler")

		c.Next()

		log.WithFields(logrus.Fields{
			"status":     c.Writer.Status(),
			"bytes":      c.Writer.Size(),
			"latency_ms": time.Since(start).Milliseconds(),
		}).Info("step 3: handler finished, response on its way")
	}
}

// bufferedWriter holds the response so it can be rewritten before sending.
type bufferedWriter struct {
	gin.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *bufferedWriter) Write(b []byte) (int, error)       { return w.buf.Write(b) }
func (w *bufferedWriter) WriteString(s string) (int, error) { return w.buf.WriteString(s) }
func (w *bufferedWriter) WriteHeader(code int)              { w.status = code }
func (w *bufferedWriter) WriteHeaderNow()                   {}
func (w *bufferedWriter) Written() bool                     { return w.status != 0 || w.buf.Len() > 0 }
func (w *bufferedWriter) Size() int                         { return w.buf.Len() }

func (w *bufferedWriter) Status() int {
	if w.status != 0 {
		return w.status
	}
	return w.ResponseWriter.Status()
}

// ResponseAnalyzer logs every response and rewrites JSON object bodies:
// password fields are removed and a _debug block is added.
func ResponseAnalyzer() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		bw := &bufferedWriter{ResponseWriter: c.Writer}
		c.Writer = bw

		c.Next()

		c.Writer = bw.ResponseWriter
		if !bw.Written() {
			return
		}

		status := bw.Status()
		body := bw.buf.Bytes()
		if strings.HasPrefix(bw.Header().Get("Content-Type"), "application/json") {
			body = analyze(body, start)
		}

		logging.FromContext(c).WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"url":        c.Request.URL.RequestURI(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"bytes":      len(body),
		}).Info("response analysis")

		c.Writer.WriteHeader(status)
		_, _ = c.Writer.Write(body)
	}
}

func analyze(body []byte, start time.Time) []byte {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return body
	}
	delete(obj, "password")
	obj["_debug"] = map[string]any{
		"requestId":   "req_" + strconv.FormatInt(start.UnixMilli(), 10),
		"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
		"processedBy": "ResponseAnalyzerInterceptor",
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return body
	}
	return out
}
