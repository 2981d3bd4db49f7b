// Package api holds the small stand-alone routes of the services: greetings,
// health and echo endpoints, protected demo payloads and the config view.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/apperr"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/config"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/guard"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/logging"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/middleware"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/validation"
	"github.com/gin-gonic/gin"
)

// Names is the first service's user list.
var Names = []string{"Pattarapol Tantechasa", "Folk", "NestJS CLI DEMO"}

// Pinger is satisfied by *sql.DB and *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	DB       Pinger
	App      config.App
	Database config.Database
	now      func() time.Time
}

func (h *Handler) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}

func (h *Handler) Hello(c *gin.Context) {
	logging.FromContext(c).Info("saying hello")
	c.String(http.StatusOK, "Hello World!")
}

func (h *Handler) ListNames(c *gin.Context) {
	c.JSON(http.StatusOK, Names)
}

// Secret returns data for the user attached by SimpleAuth.
func (h *Handler) Secret(c *gin.Context) {
	user, _ := c.Get(middleware.UserKey)
	c.JSON(http.StatusOK, gin.H{
		"secret":    "This is super secret data!",
		"message":   "Only authenticated users can see this!",
		"user":      user,
		"timestamp": h.clock().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) DBPing(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		middleware.Fail(c, apperr.Unavailable("database unreachable", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"db": "ok"})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "ts": h.clock().UnixMilli()})
}

type echoRequest struct {
	Message string `json:"message" binding:"required,min=1,max=200"`
}

var echoMessages = validation.Catalog{
	"message.required": "message must be a non-empty string",
	"message.min":      "message must be a non-empty string",
	"message.max":      "message must be at most 200 characters",
}

func (h *Handler) Echo(c *gin.Context) {
	var in echoRequest
	if err := validation.BindStrictJSON(c, &in, echoMessages); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"echoed": in.Message})
}

func (h *Handler) ProtectedPayload(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"secret": "🎟️ protected payload"})
}

// ConfigDemo shows the loaded configuration with the password masked.
func (h *Handler) ConfigDemo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"nodeEnv": h.App.NodeEnv,
		"appPort": h.App.Port,
		"database": gin.H{
			"host": h.Database.Host,
			"port": h.Database.Port,
			"user": h.Database.User,
			"pass": config.Mask(h.Database.Pass),
			"name": h.Database.Name,
		},
	})
}

func (h *Handler) TestError(c *gin.Context) {
	logging.FromContext(c).Warn("test error endpoint called")
	middleware.Fail(c, apperr.BadRequest("This is a test error!"))
}

func (h *Handler) PublicGreeting(c *gin.Context) {
	c.String(http.StatusOK, "Hello World! This endpoint is public and requires no authentication.")
}

func (h *Handler) Dog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Woof! You have the dog role and can see this."})
}

func (h *Handler) Cat(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Meow! You have the cat role and can see this."})
}

func (h *Handler) PublicOK(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Public OK"})
}

// PrivateOK echoes the verified token claims.
func (h *Handler) PrivateOK(c *gin.Context) {
	claims, _ := guard.Claims(c)
	c.JSON(http.StatusOK, gin.H{"message": "Private OK", "user": claims})
}
