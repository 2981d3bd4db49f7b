// Package schema defines the wire types shared by the queue service and its
// client SDK.
package schema

import "time"

// Job type names.
const (
	TypeEcho      = "echo"
	TypeMaybeFail = "maybe-fail"
)

// EchoPayload is the payload of an echo job.
type EchoPayload struct {
	Message string `json:"message"`
}

// MaybeFailPayload is the payload of a maybe-fail job. The job fails until it
// has been retried FailTimes times.
type MaybeFailPayload struct {
	Message   string `json:"message"`
	FailTimes int    `json:"failTimes"`
}

// JobReceipt is returned when a job is queued.
type JobReceipt struct {
	Queued    bool   `json:"queued"`
	JobID     string `json:"jobId"`
	Type      string `json:"type"`
	Msg       string `json:"msg,omitempty"`
	DelayMs   *int   `json:"delayMs,omitempty"`
	FailTimes *int   `json:"failTimes,omitempty"`
}

// JobStatus describes a job as the queue currently sees it.
type JobStatus struct {
	JobID         string         `json:"jobId"`
	Type          string         `json:"type"`
	Queue         string         `json:"queue"`
	State         string         `json:"state"`
	Retried       int            `json:"retried"`
	MaxRetry      int            `json:"maxRetry"`
	LastError     string         `json:"lastError,omitempty"`
	NextProcessAt *time.Time     `json:"nextProcessAt,omitempty"`
	CompletedAt   *time.Time     `json:"completedAt,omitempty"`
	Result        map[string]any `json:"result,omitempty"`
}

// ErrorBody is the standard error response.
type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    any    `json:"message"`
	Error      string `json:"error"`
}
