package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"versostat-graphql/internal/config"
	"versostat-graphql/internal/logging"
	"versostat-graphql/internal/serverapp"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
)

var (
	// Version is set at build time via -ldflags "-X main.Version=...".
	Version = "dev"
	Commit  = "none"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	printVersion := pflag.Bool("version", false, "Print version and exit")

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}
	if *printVersion {
		fmt.Printf("versostat-graphql %s (%s)\n", Version, Commit)
		return nil
	}
	if cfg.Observability.ServiceVersion == "" {
		cfg.Observability.ServiceVersion = Version
	}
	if err := reportValidation(cfg.Validate()); err != nil {
		return err
	}

	logger, loggerProvider, err := serverapp.InitLogger(cfg)
	if err != nil {
		return errors.Wrap(err, "initialize logging")
	}
	app, err := serverapp.New(cfg, logger)
	if err != nil {
		if loggerProvider != nil {
			_ = loggerProvider.Shutdown(context.Background(), logger.Logger)
		}
		return err
	}
	app.AttachLoggerProvider(loggerProvider)

	return serve(app, cfg.Server.ShutdownTimeout, logger)
}

// lifecycle is the part of serverapp.App that serve drives.
type lifecycle interface {
	Init(ctx context.Context) error
	Start() (<-chan error, error)
	WaitForStop(stop <-chan os.Signal, serverErrors <-chan error) (string, error)
	Shutdown(ctx context.Context) error
}

// serve runs the app until SIGINT, SIGTERM or a server failure, then shuts
// it down within shutdownTimeout.
func serve(app lifecycle, shutdownTimeout time.Duration, logger *logging.Logger) error {
	shutdown := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.Shutdown(ctx)
	}

	if err := app.Init(context.Background()); err != nil {
		return err
	}
	serverErrors, err := app.Start()
	if err != nil {
		return errors.CombineErrors(err, shutdown())
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	reason, waitErr := app.WaitForStop(stop, serverErrors)
	logger.Info("shutting down server", slog.String("reason", reason))
	if err := errors.CombineErrors(waitErr, shutdown()); err != nil {
		return err
	}
	logger.Info("server stopped gracefully")
	return nil
}

// reportValidation logs every finding and fails when any is an error.
func reportValidation(result *config.ValidationResult) error {
	report := func(level slog.Level, msg string, field, message, hint string) {
		slog.Log(context.Background(), level, msg,
			slog.String("field", field),
			slog.String("message", message),
			slog.String("hint", hint),
		)
	}
	for _, w := range result.Warnings {
		report(slog.LevelWarn, "configuration warning", w.Field, w.Message, w.Hint)
	}
	for _, e := range result.Errors {
		report(slog.LevelError, "configuration error", e.Field, e.Message, e.Hint)
	}
	if result.HasErrors() {
		return errors.Newf("configuration validation failed: %d error(s)", len(result.Errors))
	}
	return nil
}
