// Package sdk is the client library for the queue service. Calls are retried
// with exponential backoff when the transport fails or the service answers
// with a 5xx.
package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/pkg/schema"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultAddr is used when MILESTONES_QUEUE_URL is unset.
const DefaultAddr = "http://localhost:3000"

// Client talks to a running queue service over HTTP.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	// Attempts is the total number of tries per call.
	Attempts int
	// Backoff is the wait before the second try; it doubles after that.
	Backoff time.Duration
	// Limiter paces every request, retries included. Nil means unpaced.
	Limiter *rate.Limiter
	Log     logrus.FieldLogger
}

// New returns a client for the service at baseURL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Attempts:   3,
		Backoff:    200 * time.Millisecond,
		Log:        logrus.StandardLogger(),
	}
}

// FromEnv returns a client for MILESTONES_QUEUE_URL, or DefaultAddr.
func FromEnv() *Client {
	addr := os.Getenv("MILESTONES_QUEUE_URL")
	if addr == "" {
		addr = DefaultAddr
	}
	return New(addr)
}

// WithRate paces the client to perSecond requests with bursts of burst, so
// scripted use stays under the service's rate limit. perSecond <= 0 removes
// the pacing.
func (c *Client) WithRate(perSecond float64, burst int) *Client {
	if perSecond <= 0 {
		c.Limiter = nil
		return c
	}
	c.Limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, burst))
	return c
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("queue service: %d %s", e.StatusCode, e.Message)
}

func (c *Client) Echo(ctx context.Context, msg string) (*schema.JobReceipt, error) {
	var out schema.JobReceipt
	q := url.Values{"msg": {msg}}
	if err := c.get(ctx, "/demo/echo", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Delay(ctx context.Context, msg string, delay time.Duration) (*schema.JobReceipt, error) {
	var out schema.JobReceipt
	q := url.Values{"msg": {msg}, "ms": {strconv.FormatInt(delay.Milliseconds(), 10)}}
	if err := c.get(ctx, "/demo/delay", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Retry(ctx context.Context, msg string, failTimes int) (*schema.JobReceipt, error) {
	var out schema.JobReceipt
	q := url.Values{"msg": {msg}, "fail": {strconv.Itoa(failTimes)}}
	if err := c.get(ctx, "/demo/retry", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Job(ctx context.Context, id string) (*schema.JobStatus, error) {
	var out schema.JobStatus
	if err := c.get(ctx, "/demo/jobs/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	attempts := c.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			wait := c.Backoff << (i - 1)
			c.logger().WithFields(logrus.Fields{"attempt": i, "wait": wait}).WithError(err).Warn("queue request failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		if c.Limiter != nil {
			if werr := c.Limiter.Wait(ctx); werr != nil {
				return werr
			}
		}

		var retry bool
		retry, err = c.do(ctx, u, out)
		if err == nil || !retry {
			return err
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}

// do performs one request and reports whether a failure is worth retrying.
func (c *Client) do(ctx context.Context, u string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, err
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body, resp.Status)}
		return resp.StatusCode >= http.StatusInternalServerError, apiErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return false, nil
}

func (c *Client) logger() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

func errorMessage(body []byte, fallback string) string {
	var eb schema.ErrorBody
	if err := json.Unmarshal(body, &eb); err != nil || eb.Message == nil {
		return fallback
	}
	switch m := eb.Message.(type) {
	case string:
		return m
	case []any:
		parts := make([]string, 0, len(m))
		for _, p := range m {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, "; ")
	}
	return fallback
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
