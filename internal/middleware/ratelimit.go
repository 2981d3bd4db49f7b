package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/logging"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

// RateLimiter allows limit requests per fixed window for each client IP.
// A client's window opens with its first request and the count resets when
// it ends.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*client
	now     func() time.Time
}

type client struct {
	count    int
	opened   time.Time
	lastSeen time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

// hit counts one request from key and returns the count so far in the
// current window and the time that window ends.
func (rl *RateLimiter) hit(key string, now time.Time) (int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[key]
	if !ok || !now.Before(cl.opened.Add(rl.window)) {
		cl = &client{opened: now}
		rl.clients[key] = cl
	}
	cl.count++
	cl.lastSeen = now
	return cl.count, cl.opened.Add(rl.window)
}

// Sweep drops clients not seen for idle and returns how many were removed.
func (rl *RateLimiter) Sweep(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idle)
	removed := 0
	for key, cl := range rl.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// Schedule registers a sweep of idle clients once per window.
func (rl *RateLimiter) Schedule(c *cron.Cron) (cron.EntryID, error) {
	return c.AddFunc("@every "+rl.window.String(), func() { rl.Sweep(rl.window) })
}

// Middleware enforces the limit and reports it in x-ratelimit-* headers.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		now := rl.now()
		count, ends := rl.hit(c.ClientIP(), now)
		reset := seconds(ends.Sub(now))

		h := c.Writer.Header()
		h.Set("x-ratelimit-limit", strconv.Itoa(rl.limit))
		h.Set("x-ratelimit-remaining", strconv.Itoa(max(0, rl.limit-count)))
		h.Set("x-ratelimit-reset", strconv.Itoa(reset))

		if count <= rl.limit {
			c.Next()
			return
		}

		retry := max(1, reset)
		metrics.RateLimited()
		logging.FromContext(c).WithField("client_ip", c.ClientIP()).Warn("rate limit exceeded")

		h.Set("retry-after", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"code":      http.StatusTooManyRequests,
			"error":     "Too Many Requests",
			"message":   "Rate limit exceeded, retry in " + strconv.Itoa(retry) + " seconds.",
			"date":      now.UnixMilli(),
			"expiresIn": retry,
		})
	}
}

func seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
