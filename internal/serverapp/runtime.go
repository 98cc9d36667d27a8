package serverapp

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
)

// Start launches the HTTP server goroutine. It requires Init to have completed.
func (a *App) Start() (<-chan error, error) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()

	if !a.initialized {
		return nil, fmt.Errorf("app is not initialized")
	}
	if a.started {
		return a.serverErrors, nil
	}

	serverErrors := make(chan error, 1)
	go func() {
		a.logger.Info("server listening",
			slog.String("address", a.serverAddr),
			slog.String("log_level", a.cfg.Logging.Level),
			slog.Bool("metrics_enabled", a.cfg.Server.MetricsEnabled),
			slog.Bool("cache_enabled", a.cfg.Cache.Enabled),
		)
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	a.serverErrors = serverErrors
	a.started = true
	return serverErrors, nil
}

// WaitForStop waits for either an OS signal or a server error.
func (a *App) WaitForStop(stop <-chan os.Signal, serverErrors <-chan error) error {
	if serverErrors == nil {
		a.stateMu.Lock()
		serverErrors = a.serverErrors
		a.stateMu.Unlock()
	}

	select {
	case err, ok := <-serverErrors:
		if !ok || err == nil {
			return fmt.Errorf("server stopped unexpectedly")
		}
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		a.logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		return nil
	}
}
