package console

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type ServerConfig struct {
	Catalog AddonFetcher
	Origins OriginConfig
	Logger  *zap.Logger
}

// NewHandler wires the routes and middleware of the web front-end.
func NewHandler(cfg ServerConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", IndexHandler(logger))
	mux.HandleFunc("POST /addons", AddonsHandler(AddonsConfig{Catalog: cfg.Catalog, Logger: logger}))
	mux.HandleFunc("GET /healthz", HealthHandler())

	origins := cfg.Origins
	if origins.Logger == nil {
		origins.Logger = logger
	}
	return LogRequests(logger, RequireSameOrigin(mux, origins))
}

// Serve runs handler on listener until ctx is cancelled, then shuts the
// server down gracefully.
func Serve(ctx context.Context, listener net.Listener, handler http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(logger.Named("http")),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
