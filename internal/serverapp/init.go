package serverapp

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"restq/internal/dbexec"
	"restq/internal/middleware"
	"restq/internal/querycache"
	"restq/internal/scope"
)

// Init acquires all runtime resources: the database pool, the entity
// registry, the scope resolver, the optional cache with its sweeper,
// and the HTTP handler chain. Acquired resources are pushed onto the
// cleanup stack so Shutdown releases them in reverse order.
func (a *App) Init(ctx context.Context) error {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()

	if a.initialized {
		return nil
	}

	if err := a.initDatabase(ctx); err != nil {
		return err
	}
	if err := a.initQueryLayer(); err != nil {
		return err
	}
	a.initRoutes()

	a.srv = &http.Server{
		Addr:         a.serverAddr,
		Handler:      a.handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	a.initialized = true
	return nil
}

func (a *App) initDatabase(ctx context.Context) error {
	db, err := sql.Open("pgx", a.cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(a.cfg.Database.Pool.MaxOpen)
	db.SetMaxIdleConns(a.cfg.Database.Pool.MaxIdle)
	db.SetConnMaxLifetime(a.cfg.Database.Pool.MaxLifetime)

	pingCtx := ctx
	if a.cfg.Database.ConnectionTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, a.cfg.Database.ConnectionTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to reach database: %w", err)
	}

	a.db = db
	a.executor = newExecutor(db, a.cfg.Database.Role)
	a.cleanup.push("database pool", func(context.Context) error {
		return db.Close()
	})
	return nil
}

// newExecutor selects the query executor: plain pool access, or a
// SET ROLE executor when a database role is configured.
func newExecutor(db *sql.DB, role string) dbexec.QueryExecutor {
	if role == "" {
		return dbexec.NewStandardExecutor(db)
	}
	return dbexec.NewRoleExecutor(dbexec.RoleExecutorConfig{
		DB:           db,
		RoleFromCtx:  func(context.Context) (string, bool) { return role, true },
		AllowedRoles: []string{role},
		ValidateRole: true,
	})
}

func (a *App) initQueryLayer() error {
	registry, err := a.cfg.BuildRegistry()
	if err != nil {
		return fmt.Errorf("failed to build entity registry: %w", err)
	}
	a.registry = registry
	a.scopes = scope.NewDefaultResolver(a.cfg.Query.RecentWindow)

	if !a.cfg.Cache.Enabled {
		return nil
	}

	opts := []querycache.Option{}
	if a.cfg.Server.MetricsEnabled {
		opts = append(opts, querycache.WithMetrics(querycache.NewMetrics(prometheus.DefaultRegisterer)))
	}
	a.cache = querycache.New(a.cfg.Cache.TTL, opts...)

	// The cache never self-schedules; the sweeper goroutine is the
	// external scheduler calling CleanupExpired.
	if a.cfg.Cache.CleanupInterval > 0 {
		sweepCtx, stopSweep := context.WithCancel(context.Background())
		go a.sweepCache(sweepCtx)
		a.cleanup.push("cache sweeper", func(context.Context) error {
			stopSweep()
			return nil
		})
	}
	return nil
}

func (a *App) sweepCache(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Cache.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := a.cache.CleanupExpired(); removed > 0 {
				a.logger.Debug("swept expired cache entries", "removed", removed)
			}
		}
	}
}

func (a *App) initRoutes() {
	a.mux = http.NewServeMux()
	a.mux.HandleFunc("GET /health", a.handleHealth)
	a.mux.HandleFunc("GET /{entity}", a.handleEntityQuery)
	if a.cfg.Server.MetricsEnabled {
		a.mux.Handle("GET /metrics", promhttp.Handler())
	}
	a.handler = middleware.LoggingMiddleware(a.logger)(a.mux)
}
