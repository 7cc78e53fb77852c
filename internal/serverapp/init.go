package serverapp

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// Init acquires telemetry providers, the database pool and the HTTP server.
// On failure everything acquired so far is released. Calling Init again
// after success is a no-op.
func (a *App) Init(ctx context.Context) (err error) {
	if a.isInitialized() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var res releaser
	defer func() {
		if err != nil {
			_ = res.releaseAll(context.Background(), a.logger)
		}
	}()

	if lp := a.loggerProvider; lp != nil {
		res.acquired("logger provider", func(c context.Context) error { return lp.Shutdown(c, a.logger.Logger) })
	}

	meterProvider, graphqlMetrics, err := initMetrics(a.cfg, a.logger)
	if err != nil {
		return errors.Wrap(err, "initialize metrics")
	}
	if meterProvider != nil {
		res.acquired("meter provider", func(c context.Context) error { return meterProvider.Shutdown(c, a.logger.Logger) })
	}

	tracerProvider, err := initTracing(a.cfg, a.logger)
	if err != nil {
		return errors.Wrap(err, "initialize tracing")
	}
	if tracerProvider != nil {
		res.acquired("tracer provider", func(c context.Context) error { return tracerProvider.Shutdown(c, a.logger.Logger) })
	}

	db, dbStatsReg, err := connectDB(a.cfg, a.logger)
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	res.acquired("database", func(context.Context) error {
		if dbStatsReg != nil {
			if uerr := dbStatsReg.Unregister(); uerr != nil {
				a.logger.Warn("failed to unregister DB stats metrics", slog.String("error", uerr.Error()))
			}
		}
		return db.Close()
	})
	if err = configureDatabase(ctx, a.cfg, a.logger, db); err != nil {
		return errors.Wrap(err, "verify database connection")
	}

	st := buildStore(a.cfg, db)
	gqlHandler, err := buildGraphQLHandler(a.cfg, a.logger, st, graphqlMetrics)
	if err != nil {
		return errors.Wrap(err, "build GraphQL handler")
	}
	mux := buildRouter(a.cfg, a.logger, db, st, gqlHandler, meterProvider)
	handler := wrapHTTPHandler(a.cfg, a.logger, mux)
	addr := a.cfg.Server.Addr()
	srv := buildServer(a.cfg, handler, addr)
	res.acquired("HTTP server", srv.Shutdown)

	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.meterProvider, a.graphqlMetrics, a.tracerProvider = meterProvider, graphqlMetrics, tracerProvider
	a.db, a.dbStatsReg, a.store = db, dbStatsReg, st
	a.graphqlHandler, a.mux, a.handler = gqlHandler, mux, handler
	a.serverAddr, a.srv = addr, srv
	a.resources = res
	a.initialized = true
	return nil
}
