package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/shandysiswandi/gocustody/internal/pkg/goerror"
	"github.com/shandysiswandi/gocustody/internal/pkg/router"
)

const healthTimeout = 2 * time.Second

// Start serves HTTP in the background. The returned channel closes once a
// termination signal arrives.
func (a *App) Start() <-chan struct{} {
	done := make(chan struct{})
	sigCtx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		slog.Info("http server listening", "address", a.httpServer.Addr)
		err := a.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		defer close(done)
		defer stop()

		<-sigCtx.Done()
		slog.Info("termination signal received")
		a.cancel()
	}()

	return done
}

// Stop drains HTTP traffic, lets in-flight audit publishes finish and then
// releases resources in reverse dependency order.
func (a *App) Stop(ctx context.Context) {
	a.cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to close resources", "name", "HTTP Server", "error", err)
	}

	slog.InfoContext(ctx, "waiting for pending audit events")
	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background task failed", "error", err)
	}

	for _, c := range slices.Backward(a.closers) {
		if err := c.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resources", "name", c.name, "error", err)
		}
	}
	slog.InfoContext(ctx, "application stopped")
}

func (a *App) health(r *router.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", a.dbConn.Ping},
	}
	if a.cacheConn != nil {
		checks = append(checks, struct {
			name string
			ping func(context.Context) error
		}{"redis", func(ctx context.Context) error { return a.cacheConn.Ping(ctx).Err() }})
	}

	for _, c := range checks {
		if err := c.ping(ctx); err != nil {
			slog.ErrorContext(ctx, "health check failed", "name", c.name, "error", err)
			return nil, goerror.NewUnavailable(err)
		}
	}
	return map[string]string{"status": "ok"}, nil
}
