package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/middleware"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/pkg/schema"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enqueued struct {
	task *asynq.Task
	opts map[asynq.OptionType]any
}

type fakeQueue struct {
	jobs []enqueued
	err  error
}

func (f *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	byType := make(map[asynq.OptionType]any)
	for _, o := range opts {
		byType[o.Type()] = o.Value()
	}
	f.jobs = append(f.jobs, enqueued{task: task, opts: byType})
	return &asynq.TaskInfo{ID: "job-1", Type: task.Type(), Queue: Queue}, nil
}

type fakeInspector struct {
	info *asynq.TaskInfo
	err  error
}

func (f *fakeInspector) GetTaskInfo(queue, id string) (*asynq.TaskInfo, error) {
	return f.info, f.err
}

func setupRouter(q Enqueuer, insp Inspector) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()
	r := gin.New()
	r.Use(middleware.ErrorResponder())
	(&Handler{Producer: NewProducer(q, log), Inspector: insp}).Register(r)
	return r
}

func get(r http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestEchoEndpoint(t *testing.T) {
	q := &fakeQueue{}
	r := setupRouter(q, &fakeInspector{})

	w, body := get(r, "/demo/echo?msg=hi")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["queued"])
	assert.Equal(t, "job-1", body["jobId"])
	assert.Equal(t, schema.TypeEcho, body["type"])
	assert.Equal(t, "hi", body["msg"])

	require.Len(t, q.jobs, 1)
	assert.Equal(t, 0, q.jobs[0].opts[asynq.MaxRetryOpt])
	assert.Equal(t, Queue, q.jobs[0].opts[asynq.QueueOpt])
	assert.NotContains(t, q.jobs[0].opts, asynq.ProcessInOpt)
	assert.JSONEq(t, `{"message":"hi"}`, string(q.jobs[0].task.Payload()))
}

func TestDelayEndpoint(t *testing.T) {
	q := &fakeQueue{}
	r := setupRouter(q, &fakeInspector{})

	w, body := get(r, "/demo/delay")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(5000), body["delayMs"])
	assert.NotContains(t, body, "msg")
	assert.Equal(t, 5*time.Second, q.jobs[0].opts[asynq.ProcessInOpt])

	w, body = get(r, "/demo/delay?ms=soon")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ms must be a non-negative integer", body["message"])
}

func TestRetryEndpoint(t *testing.T) {
	q := &fakeQueue{}
	r := setupRouter(q, &fakeInspector{})

	w, body := get(r, "/demo/retry?fail=3")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), body["failTimes"])
	assert.Equal(t, schema.TypeMaybeFail, body["type"])
	assert.NotContains(t, body, "msg")
	assert.Equal(t, 3, q.jobs[0].opts[asynq.MaxRetryOpt])
	assert.JSONEq(t, `{"message":"retry me","failTimes":3}`, string(q.jobs[0].task.Payload()))
}

func TestEnqueueFailure(t *testing.T) {
	r := setupRouter(&fakeQueue{err: errors.New("dial tcp: connection refused")}, &fakeInspector{})

	w, _ := get(r, "/demo/echo")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusEndpoint(t *testing.T) {
	done := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	insp := &fakeInspector{info: &asynq.TaskInfo{
		ID:          "job-7",
		Type:        schema.TypeMaybeFail,
		Queue:       Queue,
		State:       asynq.TaskStateCompleted,
		Retried:     2,
		MaxRetry:    2,
		CompletedAt: done,
		Result:      []byte(`{"okAfterRetries":"retry me"}`),
	}}
	r := setupRouter(&fakeQueue{}, insp)

	w, body := get(r, "/demo/jobs/job-7")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", body["state"])
	assert.Equal(t, float64(2), body["retried"])
	assert.Equal(t, map[string]any{"okAfterRetries": "retry me"}, body["result"])

	insp.info, insp.err = nil, asynq.ErrTaskNotFound
	w, body = get(r, "/demo/jobs/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Job missing not found", body["message"])
}

func newTestProcessor(retried int) (*Processor, *test.Hook) {
	log, hook := test.NewNullLogger()
	p := NewProcessor(log)
	p.sleep = func(context.Context, time.Duration) error { return nil }
	p.retryCount = func(context.Context) (int, bool) { return retried, true }
	return p, hook
}

func TestProcessEchoReportsProgress(t *testing.T) {
	p, hook := newTestProcessor(0)

	err := p.ProcessTask(context.Background(), asynq.NewTask(schema.TypeEcho, []byte(`{"message":"hello"}`)))
	require.NoError(t, err)

	var progress []any
	for _, e := range hook.AllEntries() {
		if e.Message == "job progress" {
			progress = append(progress, e.Data["progress"])
		}
	}
	assert.Equal(t, []any{0, 25, 50, 75, 100}, progress)
}

func TestProcessEchoCancelled(t *testing.T) {
	log, _ := test.NewNullLogger()
	p := NewProcessor(log)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.ProcessTask(ctx, asynq.NewTask(schema.TypeEcho, []byte(`{"message":"hello"}`)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessMaybeFail(t *testing.T) {
	payload := []byte(`{"message":"retry me","failTimes":2}`)

	p, _ := newTestProcessor(0)
	err := p.ProcessTask(context.Background(), asynq.NewTask(schema.TypeMaybeFail, payload))
	assert.EqualError(t, err, "Failing on purpose (attempt 1/2)")

	p, _ = newTestProcessor(1)
	err = p.ProcessTask(context.Background(), asynq.NewTask(schema.TypeMaybeFail, payload))
	assert.EqualError(t, err, "Failing on purpose (attempt 2/2)")

	p, _ = newTestProcessor(2)
	assert.NoError(t, p.ProcessTask(context.Background(), asynq.NewTask(schema.TypeMaybeFail, payload)))
}

func TestProcessBadPayloadSkipsRetry(t *testing.T) {
	p, _ := newTestProcessor(0)
	err := p.ProcessTask(context.Background(), asynq.NewTask(schema.TypeMaybeFail, []byte(`nope`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestProcessUnknownType(t *testing.T) {
	p, _ := newTestProcessor(0)
	assert.NoError(t, p.ProcessTask(context.Background(), asynq.NewTask("mystery", nil)))
}

func TestObserveLogsOutcome(t *testing.T) {
	p, hook := newTestProcessor(0)
	h := p.Handler()

	err := h.ProcessTask(context.Background(), asynq.NewTask(schema.TypeMaybeFail, []byte(`{"message":"m","failTimes":1}`)))
	require.Error(t, err)
	assert.Equal(t, "job failed", hook.LastEntry().Message)

	p.retryCount = func(context.Context) (int, bool) { return 1, true }
	require.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask(schema.TypeMaybeFail, []byte(`{"message":"m","failTimes":1}`))))
	assert.Equal(t, "job completed", hook.LastEntry().Message)
}

func TestRetryDelay(t *testing.T) {
	task := asynq.NewTask(schema.TypeMaybeFail, nil)
	assert.Equal(t, time.Second, RetryDelay(0, nil, task))
	assert.Equal(t, 2*time.Second, RetryDelay(1, nil, task))
	assert.Equal(t, 4*time.Second, RetryDelay(2, nil, task))
}
