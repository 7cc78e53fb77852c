package serverapp

import (
	"context"
	"log/slog"
	"time"

	"versostat-graphql/internal/logging"

	"github.com/cockroachdb/errors"
)

// releaser tracks acquired resources and closes them newest first.
type releaser struct {
	names   []string
	closers []func(context.Context) error
}

func (r *releaser) acquired(name string, closeFn func(context.Context) error) {
	r.names = append(r.names, name)
	r.closers = append(r.closers, closeFn)
}

// releaseAll closes every resource even when earlier ones fail and returns
// the combined error.
func (r *releaser) releaseAll(ctx context.Context, logger *logging.Logger) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		start := time.Now()
		err := r.closers[i](ctx)
		if logger == nil {
			errs = append(errs, err)
			continue
		}
		attrs := []any{
			slog.String("component", r.names[i]),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "close %s", r.names[i]))
			logger.Warn("shutdown step failed", append(attrs, slog.String("error", err.Error()))...)
			continue
		}
		logger.Info("shutdown step complete", attrs...)
	}
	r.names, r.closers = nil, nil
	return errors.Join(errs...)
}

// Shutdown releases everything Init acquired. Only the first call does
// any work; later calls return its result.
func (a *App) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.shutdownOnce.Do(func() {
		a.stateMu.Lock()
		res := a.resources
		a.resources = releaser{}
		a.started = false
		a.stateMu.Unlock()

		a.shutdownErr = res.releaseAll(ctx, a.logger)
	})
	return a.shutdownErr
}
