// Command milestonesd runs one milestone service, chosen by MILESTONE.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/config"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/logging"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := run(); err != nil {
		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, "Configuration is invalid:")
			for _, m := range cfgErr.Messages {
				fmt.Fprintln(os.Stderr, "  -", m)
			}
			os.Exit(1)
		}
		logrus.WithError(err).Fatal("milestonesd stopped")
	}
}

func run() error {
	if _, err := config.LoadEnvFiles(".", os.Getenv("NODE_ENV")); err != nil {
		return err
	}

	var app config.App
	if err := config.Load(&app); err != nil {
		return err
	}

	log, err := logging.New(logging.Options{Level: app.LogLevel, Format: app.LogFormat})
	if err != nil {
		return err
	}
	if app.NodeEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{"milestone": app.Milestone, "env": app.NodeEnv}).Info("starting service")

	deps, cleanup, err := wire(ctx, app, log)
	if err != nil {
		return err
	}
	defer cleanup()

	h, err := server.New(app.Milestone, deps)
	if err != nil {
		return err
	}
	if err := server.Run(ctx, app.Addr(), h, log); err != nil {
		return err
	}
	log.Info("service stopped")
	return nil
}
