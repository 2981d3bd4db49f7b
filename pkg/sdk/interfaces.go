package sdk

import (
	"context"
	"time"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/pkg/schema"
)

// JobQueue is the surface of the queue service.
// Client implements it; tests can substitute their own.
type JobQueue interface {
	// Echo queues an echo job processed right away.
	Echo(ctx context.Context, msg string) (*schema.JobReceipt, error)
	// Delay queues an echo job processed after delay.
	Delay(ctx context.Context, msg string, delay time.Duration) (*schema.JobReceipt, error)
	// Retry queues a job that fails failTimes times before succeeding.
	Retry(ctx context.Context, msg string, failTimes int) (*schema.JobReceipt, error)
	// Job reports the current state of a queued job.
	Job(ctx context.Context, id string) (*schema.JobStatus, error)
}

var _ JobQueue = (*Client)(nil)
