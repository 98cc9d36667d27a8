// Package serverapp owns the server lifecycle: resource acquisition in
// Init, the serve loop in Start, and ordered teardown in Shutdown.
package serverapp

import (
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"restq/internal/config"
	"restq/internal/dbexec"
	"restq/internal/entity"
	"restq/internal/logging"
	"restq/internal/querycache"
	"restq/internal/scope"
)

// App owns runtime resources for the restq server lifecycle.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	db       *sql.DB
	executor dbexec.QueryExecutor

	registry *entity.Registry
	scopes   *scope.Resolver
	cache    *querycache.Cache

	mux     *http.ServeMux
	handler http.Handler

	serverAddr string
	srv        *http.Server

	cleanup cleanupStack

	stateMu      sync.Mutex
	initialized  bool
	started      bool
	serverErrors chan error

	shutdownOnce sync.Once
}

// New creates an App lifecycle wrapper.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &App{
		cfg:        cfg,
		logger:     logger,
		serverAddr: fmt.Sprintf(":%d", cfg.Server.Port),
	}, nil
}

// Handler exposes the assembled HTTP handler, for tests and embedding.
func (a *App) Handler() http.Handler {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.handler
}
