package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/accounts"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/config"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/database"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/logging"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/pkg/sdk"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

type cli struct {
	log   *logrus.Logger
	queue sdk.JobQueue
	out   io.Writer
}

// newRootCmd builds the command tree. A nil queue means one is created from
// --queue-url or the environment.
func newRootCmd(queue sdk.JobQueue) *cobra.Command {
	app := &cli{out: os.Stdout, queue: queue}
	var (
		queueURL string
		perSec   float64
	)

	root := &cobra.Command{
		Use:           "milestones",
		Short:         "Operate the milestone services",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := config.LoadEnvFiles(".", os.Getenv("NODE_ENV")); err != nil {
				return err
			}
			log, err := logging.New(logging.Options{
				Level:  os.Getenv("LOG_LEVEL"),
				Format: os.Getenv("LOG_FORMAT"),
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			app.log = log
			if app.queue == nil {
				c := sdk.FromEnv()
				if queueURL != "" {
					c = sdk.New(queueURL)
				}
				c.Log = log
				app.queue = c.WithRate(perSec, 1)
			}
			app.out = cmd.OutOrStdout()
			return nil
		},
	}
	root.PersistentFlags().Float64Var(&perSec, "rate", 5, "max queue requests per second, 0 for unlimited")
	root.PersistentFlags().StringVar(&queueURL, "queue-url", "", "queue service base URL (default $MILESTONES_QUEUE_URL or "+sdk.DefaultAddr+")")

	root.AddCommand(app.migrateCmd(), app.seedCmd(), app.enqueueCmd(), app.jobCmd())
	return root
}

func (a *cli) migrator() (*database.Migrator, error) {
	var db config.Database
	if err := config.Load(&db); err != nil {
		return nil, err
	}
	return database.NewMigrator(db.URL(), a.log)
}

func (a *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Apply or revert database migrations"}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			mg, err := a.migrator()
			if err != nil {
				return err
			}
			defer mg.Close()
			if err := mg.Up(); err != nil {
				return err
			}
			a.log.Info("migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Revert the last migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}
			mg, err := a.migrator()
			if err != nil {
				return err
			}
			defer mg.Close()
			if err := mg.Down(steps); err != nil {
				return err
			}
			a.log.WithField("steps", steps).Info("migrations reverted")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			mg, err := a.migrator()
			if err != nil {
				return err
			}
			defer mg.Close()
			v, dirty, ok, err := mg.Version()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(a.out, "no migrations applied")
				return nil
			}
			fmt.Fprintf(a.out, "version %d (dirty: %t)\n", v, dirty)
			return nil
		},
	})
	return cmd
}

func (a *cli) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "seed [seed|clear|fresh]",
		Short:     "Seed the users table with sample accounts",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"seed", "clear", "fresh"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "seed"
			if len(args) == 1 {
				action = args[0]
			}

			var cfg config.Database
			if err := config.Load(&cfg); err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := database.Open(ctx, cfg.URL())
			if err != nil {
				return err
			}
			defer db.Close()

			repo := accounts.NewPostgresRepository(db)
			seeder := accounts.NewSeeder(repo, accounts.NewService(repo, bcrypt.DefaultCost), a.log)

			switch action {
			case "clear":
				return seeder.Clear(ctx)
			case "fresh":
				n, err := seeder.Fresh(ctx)
				if err == nil {
					fmt.Fprintf(a.out, "seeded %d users\n", n)
				}
				return err
			default:
				n, err := seeder.Seed(ctx)
				if err == nil {
					fmt.Fprintf(a.out, "seeded %d users\n", n)
				}
				return err
			}
		},
	}
}

func (a *cli) enqueueCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "enqueue", Short: "Queue a demo job on a running queue service"}

	cmd.AddCommand(&cobra.Command{
		Use:   "echo [message]",
		Short: "Queue an echo job",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.queue.Echo(cmd.Context(), argOr(args, "hello"))
			if err != nil {
				return err
			}
			return a.print(r)
		},
	})

	var delay time.Duration
	delayCmd := &cobra.Command{
		Use:   "delay [message]",
		Short: "Queue an echo job processed later",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.queue.Delay(cmd.Context(), argOr(args, "delayed hello"), delay)
			if err != nil {
				return err
			}
			return a.print(r)
		},
	}
	delayCmd.Flags().DurationVar(&delay, "in", 5*time.Second, "delay before processing")
	cmd.AddCommand(delayCmd)

	var fail int
	retryCmd := &cobra.Command{
		Use:   "retry [message]",
		Short: "Queue a job that fails before succeeding",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fail < 0 {
				return fmt.Errorf("--fail must not be negative")
			}
			r, err := a.queue.Retry(cmd.Context(), argOr(args, "retry me"), fail)
			if err != nil {
				return err
			}
			return a.print(r)
		},
	}
	retryCmd.Flags().IntVar(&fail, "fail", 1, "how many attempts fail before the job succeeds")
	cmd.AddCommand(retryCmd)

	return cmd
}

func (a *cli) jobCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "job <id>",
		Short: "Show the state of a queued job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if wait > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, wait)
				defer cancel()
			}
			for {
				st, err := a.queue.Job(ctx, args[0])
				if err != nil {
					return err
				}
				if wait == 0 || st.State == "completed" || st.State == "archived" {
					return a.print(st)
				}
				select {
				case <-ctx.Done():
					return a.print(st)
				case <-time.After(500 * time.Millisecond):
				}
			}
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "poll until the job finishes or this much time passes")
	return cmd
}

func (a *cli) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func argOr(args []string, def string) string {
	if len(args) > 0 {
		return args[0]
	}
	return def
}
