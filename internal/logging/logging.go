// Package logging builds the service logger and the request-scoped entries
// handlers log through.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const contextKey = "logger"

// Options control logger construction.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// New returns a logger configured from opts. An empty level means info and an
// empty format means text.
func New(opts Options) (*logrus.Logger, error) {
	log := logrus.New()

	if opts.Output != nil {
		log.SetOutput(opts.Output)
	} else {
		log.SetOutput(os.Stdout)
	}

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	log.SetLevel(level)

	switch opts.Format {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	return log, nil
}

// Attach stores a request-scoped entry on the context.
func Attach(c *gin.Context, entry *logrus.Entry) {
	c.Set(contextKey, entry)
}

// FromContext returns the request-scoped entry, falling back to the standard
// logger when no request logging middleware ran.
func FromContext(c *gin.Context) *logrus.Entry {
	if v, ok := c.Get(contextKey); ok {
		if entry, ok := v.(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Redact returns a copy of fields with password values masked.
func Redact(fields map[string]any) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for k, v := range fields {
		if k == "password" {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = v
	}
	return out
}
