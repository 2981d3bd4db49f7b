package api

import (
	"net/http"
	"os"
	"runtime"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/apperr"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/process"
)

// Runtime reports process statistics for debugging sessions.
func (h *Handler) Runtime(c *gin.Context) {
	ctx := c.Request.Context()
	pid := os.Getpid()

	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		middleware.Fail(c, apperr.Internal(err))
		return
	}

	stats := gin.H{
		"pid":        pid,
		"goroutines": runtime.NumGoroutine(),
		"goVersion":  runtime.Version(),
	}
	if mem, err := p.MemoryInfoWithContext(ctx); err == nil {
		stats["rssBytes"] = mem.RSS
		stats["vmsBytes"] = mem.VMS
	}
	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		stats["cpuPercent"] = cpu
	}
	if threads, err := p.NumThreadsWithContext(ctx); err == nil {
		stats["threads"] = threads
	}
	c.JSON(http.StatusOK, stats)
}
