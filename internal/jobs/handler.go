package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/apperr"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/middleware"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/pkg/schema"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

// Handler exposes the producer and job lookup over HTTP.
type Handler struct {
	Producer  *Producer
	Inspector Inspector
}

func (h *Handler) Register(rg gin.IRoutes) {
	rg.GET("/demo/echo", h.Echo)
	rg.GET("/demo/delay", h.Delay)
	rg.GET("/demo/retry", h.Retry)
	rg.GET("/demo/jobs/:id", h.Status)
}

func (h *Handler) Echo(c *gin.Context) {
	msg := c.DefaultQuery("msg", "hello")
	info, err := h.Producer.Echo(c.Request.Context(), msg, 0)
	if err != nil {
		middleware.Fail(c, apperr.Unavailable("queue unavailable", err))
		return
	}
	c.JSON(http.StatusOK, schema.JobReceipt{Queued: true, JobID: info.ID, Type: info.Type, Msg: msg})
}

func (h *Handler) Delay(c *gin.Context) {
	msg := c.DefaultQuery("msg", "delayed hello")
	ms, err := intQuery(c, "ms", 5000)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	info, err := h.Producer.Echo(c.Request.Context(), msg, time.Duration(ms)*time.Millisecond)
	if err != nil {
		middleware.Fail(c, apperr.Unavailable("queue unavailable", err))
		return
	}
	c.JSON(http.StatusOK, schema.JobReceipt{Queued: true, JobID: info.ID, Type: info.Type, DelayMs: &ms})
}

func (h *Handler) Retry(c *gin.Context) {
	msg := c.DefaultQuery("msg", "retry me")
	fail, err := intQuery(c, "fail", 1)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	info, err := h.Producer.MaybeFail(c.Request.Context(), msg, fail)
	if err != nil {
		middleware.Fail(c, apperr.Unavailable("queue unavailable", err))
		return
	}
	c.JSON(http.StatusOK, schema.JobReceipt{Queued: true, JobID: info.ID, Type: info.Type, FailTimes: &fail})
}

func (h *Handler) Status(c *gin.Context) {
	id := c.Param("id")
	info, err := h.Inspector.GetTaskInfo(Queue, id)
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		middleware.Fail(c, apperr.NotFound(fmt.Sprintf("Job %s not found", id)))
		return
	}
	if err != nil {
		middleware.Fail(c, apperr.Unavailable("queue unavailable", err))
		return
	}
	c.JSON(http.StatusOK, Status(info))
}

// Status converts queue task info into the wire representation.
func Status(info *asynq.TaskInfo) schema.JobStatus {
	st := schema.JobStatus{
		JobID:     info.ID,
		Type:      info.Type,
		Queue:     info.Queue,
		State:     info.State.String(),
		Retried:   info.Retried,
		MaxRetry:  info.MaxRetry,
		LastError: info.LastErr,
	}
	if !info.NextProcessAt.IsZero() {
		t := info.NextProcessAt
		st.NextProcessAt = &t
	}
	if !info.CompletedAt.IsZero() {
		t := info.CompletedAt
		st.CompletedAt = &t
	}
	if len(info.Result) > 0 {
		var result map[string]any
		if err := json.Unmarshal(info.Result, &result); err == nil {
			st.Result = result
		}
	}
	return st
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.BadRequest(fmt.Sprintf("%s must be a non-negative integer", key))
	}
	return n, nil
}
