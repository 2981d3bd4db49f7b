// Package server assembles one gin engine per milestone service and runs it
// behind a gracefully stopping http.Server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/accounts"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/api"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/auth"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/config"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/guard"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/jobs"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/login"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/metrics"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/middleware"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/secure"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/signup"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/users"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Milestone names, as accepted in MILESTONE.
const (
	FirstApp   = "first-app"
	Docker     = "docker"
	Pipes      = "pipes"
	ORM        = "orm"
	Queue      = "queue"
	Auth0      = "auth0"
	Security   = "security"
	Encryption = "encryption"
	Config     = "config"
	Logging    = "logging"
	Debug      = "debug"
	Testing    = "testing"
	Mocking    = "mocking"
)

// Milestones lists every service New can build.
var Milestones = []string{
	FirstApp, Docker, Pipes, ORM, Queue, Auth0, Security,
	Encryption, Config, Logging, Debug, Testing, Mocking,
}

// Deps carries whatever the selected service needs. Only the fields of that
// service have to be set.
type Deps struct {
	Log      *logrus.Logger
	App      config.App
	Database config.Database

	DB        api.Pinger
	Users     *users.Store
	Accounts  *accounts.Service
	Secure    *secure.Repository
	Producer  *jobs.Producer
	Inspector jobs.Inspector
	Verifier  *guard.Verifier
	Auth      *auth.Service
	Directory *login.Directory
	Signups   *signup.Registry

	RolesClaim string
	APIKey     string
	Origins    []string
	Limiter    *middleware.RateLimiter

	// TrustedProxies may set forwarding headers. With none, the client IP
	// is always the socket peer.
	TrustedProxies []string
}

// New builds the HTTP handler of the named milestone.
func New(name string, d Deps) (http.Handler, error) {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	h := &api.Handler{DB: d.DB, App: d.App, Database: d.Database}

	responder := middleware.ErrorResponder()
	if name == ORM {
		responder = middleware.ErrorEnvelope()
	}
	r, err := base(d.Log, d.TrustedProxies, responder)
	if err != nil {
		return nil, err
	}

	switch name {
	case FirstApp:
		r.GET("/", h.Hello)
		r.GET("/users", h.ListNames)
		return r, nil

	case Docker:
		if d.DB == nil {
			return nil, missing(name, "database")
		}
		r.GET("/", h.Hello)
		r.GET("/db-ping", h.DBPing)
		return r, nil

	case Pipes:
		if d.Users == nil {
			return nil, missing(name, "user store")
		}
		r.GET("/", h.Hello)
		(&users.Handler{Store: d.Users}).Register(r)
		return r, nil

	case ORM:
		if d.Accounts == nil {
			return nil, missing(name, "account service")
		}
		explained := r.Group("/", middleware.Explain())
		explained.GET("/", h.Hello)
		explained.GET("/secret", middleware.SimpleAuth(), h.Secret)
		(&accounts.Handler{Service: d.Accounts}).Register(r)
		return r, nil

	case Queue:
		if d.Producer == nil || d.Inspector == nil {
			return nil, missing(name, "queue client")
		}
		r.GET("/", h.Hello)
		(&jobs.Handler{Producer: d.Producer, Inspector: d.Inspector}).Register(r)
		return r, nil

	case Auth0:
		if d.Verifier == nil {
			return nil, missing(name, "token verifier")
		}
		claim := d.RolesClaim
		if claim == "" {
			claim = guard.DefaultRolesClaim
		}
		r.GET("/", h.PublicGreeting)
		r.GET("/public", h.PublicOK)
		authed := r.Group("/", guard.Authenticate(d.Verifier))
		authed.GET("/private", h.PrivateOK)
		authed.GET("/dog", guard.RequireRoles(claim, "dog"), h.Dog)
		authed.GET("/cat", guard.RequireRoles(claim, "cat"), h.Cat)
		return r, nil

	case Security:
		if d.APIKey == "" || d.Limiter == nil {
			return nil, missing(name, "api key and rate limiter")
		}
		r.Use(
			middleware.SecurityHeaders(),
			middleware.CORS(middleware.CORSOptions{Origins: d.Origins, Credentials: true}),
			d.Limiter.Middleware(),
		)
		r.GET("/health", h.Health)
		r.POST("/echo", h.Echo)
		r.GET("/secret", guard.APIKey(d.APIKey), h.ProtectedPayload)
		return r, nil

	case Encryption:
		if d.Secure == nil {
			return nil, missing(name, "secure repository")
		}
		r.Use(middleware.CORS(middleware.CORSOptions{AllowAll: true}))
		r.GET("/", h.Hello)
		(&secure.Handler{Repo: d.Secure}).Register(r)
		return r, nil

	case Config:
		r.GET("/", h.Hello)
		r.GET("/config/demo", h.ConfigDemo)
		return r, nil

	case Logging:
		r.GET("/", h.Hello)
		r.GET("/test-error", h.TestError)
		login.AdminLogin{}.Register(r)
		return r, nil

	case Debug:
		signups := d.Signups
		if signups == nil {
			signups = signup.NewRegistry()
		}
		r.Use(middleware.ResponseAnalyzer())
		r.GET("/", h.Hello)
		r.GET("/debug/runtime", h.Runtime)
		(&signup.Handler{Registry: signups}).Register(r)
		return r, nil

	case Testing:
		dir := d.Directory
		if dir == nil {
			dir = login.DemoDirectory()
		}
		r.GET("/", h.Hello)
		(&login.Handler{Directory: dir}).Register(r)
		return r, nil

	case Mocking:
		if d.Auth == nil {
			return nil, missing(name, "auth service")
		}
		r.GET("/", h.Hello)
		(&auth.Handler{Service: d.Auth}).Register(r)
		return r, nil
	}
	return nil, fmt.Errorf("unknown milestone %q", name)
}

// base returns an engine with the chain every service shares and /metrics.
// Routes registered on it later run behind responder.
func base(log *logrus.Logger, proxies []string, responder gin.HandlerFunc) (*gin.Engine, error) {
	validation.UseJSONNames()

	r := gin.New()
	if err := r.SetTrustedProxies(proxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.Use(middleware.RequestLogger(log), middleware.Metrics(), responder, middleware.Recovery())
	return r, nil
}

func missing(name, what string) error {
	return fmt.Errorf("milestone %s: %s not configured", name, what)
}

// Run serves h on addr until ctx is cancelled, then drains in-flight
// requests for up to ten seconds.
func Run(ctx context.Context, addr string, h http.Handler, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutdown signal received, draining requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
