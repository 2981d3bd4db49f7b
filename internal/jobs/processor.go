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

// BackoffBase is the first retry delay of maybe-fail jobs. Each further
// retry doubles it.
const BackoffBase = time.Second

// Concurrency is how many jobs a worker runs at once.
const Concurrency = 5

const progressStep = 200 * time.Millisecond

// RetryDelay backs off maybe-fail jobs exponentially from BackoffBase. n is
// the number of retries already made.
func RetryDelay(n int, err error, t *asynq.Task) time.Duration {
	if t.Type() == schema.TypeMaybeFail {
		return BackoffBase << n
	}
	return asynq.DefaultRetryDelayFunc(n, err, t)
}

// Processor runs demo jobs.
type Processor struct {
	log        logrus.FieldLogger
	sleep      func(ctx context.Context, d time.Duration) error
	retryCount func(ctx context.Context) (int, bool)
}

func NewProcessor(log logrus.FieldLogger) *Processor {
	return &Processor{log: log, sleep: sleepCtx, retryCount: asynq.GetRetryCount}
}

// ProcessTask implements asynq.Handler. Unknown job types are acknowledged
// and ignored.
func (p *Processor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	switch t.Type() {
	case schema.TypeEcho:
		return p.echo(ctx, t)
	case schema.TypeMaybeFail:
		return p.maybeFail(ctx, t)
	default:
		p.log.WithField("type", t.Type()).Warn("ignoring job of unknown type")
		return nil
	}
}

func (p *Processor) echo(ctx context.Context, t *asynq.Task) error {
	var in schema.EchoPayload
	if err := json.Unmarshal(t.Payload(), &in); err != nil {
		return fmt.Errorf("decode echo payload: %v: %w", err, asynq.SkipRetry)
	}

	for progress := 0; progress <= 100; progress += 25 {
		p.log.WithFields(logrus.Fields{"type": t.Type(), "progress": progress}).Info("job progress")
		if err := p.sleep(ctx, progressStep); err != nil {
			return err
		}
	}
	return writeResult(t, map[string]any{"echoed": in.Message})
}

func (p *Processor) maybeFail(ctx context.Context, t *asynq.Task) error {
	var in schema.MaybeFailPayload
	if err := json.Unmarshal(t.Payload(), &in); err != nil {
		return fmt.Errorf("decode maybe-fail payload: %v: %w", err, asynq.SkipRetry)
	}

	retried, _ := p.retryCount(ctx)
	if retried < in.FailTimes {
		return fmt.Errorf("Failing on purpose (attempt %d/%d)", retried+1, in.FailTimes)
	}
	return writeResult(t, map[string]any{"okAfterRetries": in.Message})
}

// Observe logs and counts every attempt.
func (p *Processor) Observe(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		id, _ := asynq.GetTaskID(ctx)
		retried, _ := p.retryCount(ctx)
		entry := p.log.WithFields(logrus.Fields{"job_id": id, "type": t.Type(), "attempt": retried + 1})

		err := next.ProcessTask(ctx, t)
		if err != nil {
			metrics.JobProcessed(t.Type(), "failed")
			entry.WithError(err).Warn("job failed")
			return err
		}
		metrics.JobProcessed(t.Type(), "completed")
		entry.Info("job completed")
		return nil
	})
}

// Handler is p wrapped by Observe, ready for asynq.Server.Start.
func (p *Processor) Handler() asynq.Handler {
	return p.Observe(p)
}

// NewServer builds a worker for Queue.
func NewServer(redis asynq.RedisConnOpt, log *logrus.Logger) *asynq.Server {
	return asynq.NewServer(redis, asynq.Config{
		Concurrency:    Concurrency,
		Queues:         map[string]int{Queue: 1},
		RetryDelayFunc: RetryDelay,
		Logger:         log,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			if retried >= maxRetry {
				log.WithFields(logrus.Fields{"type": t.Type(), "attempts": retried + 1}).WithError(err).Error("job exhausted its attempts")
			}
		}),
	})
}

func writeResult(t *asynq.Task, v any) error {
	rw := t.ResultWriter()
	if rw == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = rw.Write(b)
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
