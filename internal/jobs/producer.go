// Package jobs queues demo jobs on Redis through asynq and processes them:
// an echo job reporting progress and a job that fails on purpose until it
// has been retried enough times.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/metrics"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/pkg/schema"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Queue is the queue every demo job goes to.
const Queue = "demo"

// Retention keeps finished jobs around so their status can be looked up.
const Retention = 24 * time.Hour

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Inspector is satisfied by *asynq.Inspector.
type Inspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
}

// Producer builds and enqueues demo jobs.
type Producer struct {
	queue Enqueuer
	log   logrus.FieldLogger
}

func NewProducer(q Enqueuer, log logrus.FieldLogger) *Producer {
	return &Producer{queue: q, log: log}
}

// Echo queues an echo job, processed after delay when delay is positive.
// Echo jobs are never retried.
func (p *Producer) Echo(ctx context.Context, msg string, delay time.Duration) (*asynq.TaskInfo, error) {
	payload, err := json.Marshal(schema.EchoPayload{Message: msg})
	if err != nil {
		return nil, err
	}
	opts := []asynq.Option{asynq.Queue(Queue), asynq.MaxRetry(0), asynq.Retention(Retention)}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}
	return p.enqueue(ctx, asynq.NewTask(schema.TypeEcho, payload), opts...)
}

// MaybeFail queues a job that fails failTimes times before succeeding. It
// is allowed exactly failTimes retries.
func (p *Producer) MaybeFail(ctx context.Context, msg string, failTimes int) (*asynq.TaskInfo, error) {
	if failTimes < 0 {
		return nil, fmt.Errorf("failTimes must not be negative, got %d", failTimes)
	}
	payload, err := json.Marshal(schema.MaybeFailPayload{Message: msg, FailTimes: failTimes})
	if err != nil {
		return nil, err
	}
	return p.enqueue(ctx, asynq.NewTask(schema.TypeMaybeFail, payload),
		asynq.Queue(Queue), asynq.MaxRetry(failTimes), asynq.Retention(Retention))
}

func (p *Producer) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	info, err := p.queue.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	metrics.JobEnqueued(task.Type())
	p.log.WithFields(logrus.Fields{"job_id": info.ID, "type": info.Type}).Info("job queued")
	return info, nil
}
