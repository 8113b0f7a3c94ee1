package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Vodeneev/linesniper/internal/pkg/health/handlers"
	"github.com/Vodeneev/linesniper/internal/pkg/performance"
)

// Deps are the read-only views the server exposes.
type Deps struct {
	Tracker  *performance.Tracker
	Pool     handlers.PoolStats
	Movers   handlers.MoversSource
	Horizon  time.Duration
	MinShift float64
}

// NewRouter wires the health, metrics and movers endpoints.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/ping", handlers.HandlePing)
	r.Get("/health", handlers.Health(d.Pool))
	r.Get("/metrics", handlers.Metrics(d.Tracker, d.Pool))
	if d.Movers != nil {
		r.Get("/movers", handlers.Movers(d.Movers, d.Horizon, d.MinShift))
	}
	return r
}

// Run serves handler on addr in the background until ctx is cancelled.
func Run(ctx context.Context, addr, service string, handler http.Handler, readHeaderTimeout time.Duration) error {
	if readHeaderTimeout <= 0 {
		return fmt.Errorf("read_header_timeout must be specified in config")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		slog.Info("Health server listening", "service", service, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Health server error", "service", service, "error", err)
		}
	}()
	return nil
}

func AddrFor(port int) (string, error) {
	if port <= 0 {
		return "", fmt.Errorf("port must be greater than 0")
	}
	return fmt.Sprintf(":%d", port), nil
}
