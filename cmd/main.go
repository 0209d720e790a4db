package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/versehub/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := newApp(runner)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}

// newApp builds the root command with global flags and every subcommand.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "versehub",
		Usage:   "Discover, validate and import versioned scripture repositories",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"C"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("VERSEHUB_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error); overrides log.level",
				Sources: cli.EnvVars("VERSEHUB_LOG_LEVEL"),
			},
		},
		Before:   r.Before,
		After:    r.After,
		Commands: r.register(),
	}
}

// Before records global flags before any command action runs.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	r.configPath = cmd.String("config")
	r.logLevel = cmd.String("log-level")
	if r.logLevel != "" {
		shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.logLevel))
	}
	return ctx, nil
}

// After releases the library. In-flight imports get a grace period even when ctx was interrupted.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return r.Close(ctx)
}
