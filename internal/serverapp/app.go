package serverapp

import (
	"database/sql"
	"net/http"
	"sync"

	"versostat-graphql/internal/config"
	"versostat-graphql/internal/logging"
	"versostat-graphql/internal/observability"
	"versostat-graphql/internal/store"

	"github.com/cockroachdb/errors"
)

// App owns runtime resources for the versostat-graphql server lifecycle.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	loggerProvider *observability.LoggerProvider

	meterProvider  *observability.MeterProvider
	graphqlMetrics *observability.GraphQLMetrics
	tracerProvider *observability.TracerProvider

	db         *sql.DB
	dbStatsReg interface{ Unregister() error }
	store      *store.Store

	graphqlHandler http.Handler
	mux            *http.ServeMux
	handler        http.Handler

	serverAddr string
	srv        *http.Server

	resources   releaser
	shutdownErr error

	stateMu      sync.Mutex
	initialized  bool
	started      bool
	serverErrors chan error

	shutdownOnce sync.Once
}

// New creates an App lifecycle wrapper.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if _, err := cfg.Database.DSN(); err != nil {
		return nil, errors.Wrap(err, "resolve database connection")
	}

	return &App{cfg: cfg, logger: logger}, nil
}

// AttachLoggerProvider registers an optional logger provider for shutdown cleanup.
func (a *App) AttachLoggerProvider(provider *observability.LoggerProvider) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.loggerProvider = provider
}

// Handler returns the fully wrapped HTTP handler. It is nil before Init.
func (a *App) Handler() http.Handler {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.handler
}

// Addr returns the address the server listens on.
func (a *App) Addr() string {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.serverAddr
}

func (a *App) isInitialized() bool {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.initialized
}
