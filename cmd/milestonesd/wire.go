package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/accounts"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/auth"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/config"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/database"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/guard"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/jobs"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/middleware"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/secure"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/server"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/snapshot"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/users"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/vault"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// wire builds what the selected milestone needs. cleanup releases it in
// reverse order and is safe to call when err is nil.
func wire(ctx context.Context, app config.App, log *logrus.Logger) (server.Deps, func(), error) {
	d := server.Deps{Log: log, App: app, TrustedProxies: app.Proxies()}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (server.Deps, func(), error) {
		cleanup()
		return server.Deps{}, func() {}, err
	}

	switch app.Milestone {
	case server.Docker, server.Config:
		if err := config.Load(&d.Database); err != nil {
			return fail(err)
		}
		if app.Milestone == server.Config {
			break
		}
		db, err := database.Open(ctx, d.Database.URL())
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { db.Close() })
		d.DB = db

	case server.Pipes:
		var p *snapshot.Persistence
		if app.DataDir != "" {
			var err error
			if p, err = snapshot.NewPersistence(filepath.Join(app.DataDir, "pipes")); err != nil {
				return fail(err)
			}
		}
		store, err := users.NewStore(p, log)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() {
			store.Wait()
			log.Info("user snapshots flushed")
		})
		d.Users = store

	case server.ORM, server.Encryption:
		db, err := openMigrated(ctx, &d, log)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { db.Close() })

		if app.Milestone == server.ORM {
			d.Accounts = accounts.NewService(accounts.NewPostgresRepository(db), bcrypt.DefaultCost)
			break
		}
		var enc config.Encryption
		if err := config.Load(&enc); err != nil {
			return fail(err)
		}
		if enc.UsingFallback() {
			log.Warn("ENCRYPTION_KEY not set, using the development fallback key")
		}
		cipher, err := vault.NewCipher(enc.KeyOrFallback())
		if err != nil {
			return fail(err)
		}
		d.Secure = secure.NewRepository(db, cipher)

	case server.Queue:
		var rc config.Redis
		if err := config.Load(&rc); err != nil {
			return fail(err)
		}
		redis := asynq.RedisClientOpt{Addr: rc.Addr()}

		client := asynq.NewClient(redis)
		inspector := asynq.NewInspector(redis)
		closers = append(closers, func() {
			client.Close()
			inspector.Close()
		})

		worker := jobs.NewServer(redis, log)
		if err := worker.Start(jobs.NewProcessor(log).Handler()); err != nil {
			return fail(fmt.Errorf("start worker: %w", err))
		}
		closers = append(closers, worker.Shutdown)

		d.Producer = jobs.NewProducer(client, log)
		d.Inspector = inspector

	case server.Auth0:
		var ac config.Auth0
		if err := config.Load(&ac); err != nil {
			return fail(err)
		}
		issuer := guard.Issuer(ac.Domain)
		kf, err := guard.RemoteKeyfunc(ctx, guard.JWKSURL(issuer))
		if err != nil {
			return fail(err)
		}
		d.Verifier = guard.NewVerifier(kf, issuer, ac.Audience)
		d.RolesClaim = ac.RolesClaim

	case server.Security:
		var sc config.Security
		if err := config.Load(&sc); err != nil {
			return fail(err)
		}
		d.APIKey = sc.APIKey
		d.Origins = sc.Origins()
		d.Limiter = middleware.NewRateLimiter(sc.RateLimit, sc.RateWindow)

		c := cron.New()
		if _, err := d.Limiter.Schedule(c); err != nil {
			return fail(err)
		}
		c.Start()
		closers = append(closers, func() { <-c.Stop().Done() })

	case server.Mocking:
		svc, err := auth.DemoService(auth.BcryptHasher{Cost: bcrypt.DefaultCost})
		if err != nil {
			return fail(err)
		}
		d.Auth = svc
	}
	return d, cleanup, nil
}

// openMigrated connects to Postgres and applies pending migrations.
func openMigrated(ctx context.Context, d *server.Deps, log *logrus.Logger) (*sqlx.DB, error) {
	if err := config.Load(&d.Database); err != nil {
		return nil, err
	}
	url := d.Database.URL()

	mg, err := database.NewMigrator(url, log)
	if err != nil {
		return nil, err
	}
	err = mg.Up()
	mg.Close()
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return database.Open(ctx, url)
}
