// Package httpapi exposes the run client over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// Controller registers its routes on the versioned group.
type Controller interface {
	RegisterPublic(*gin.RouterGroup)
}

// Router serves the registered controllers under /v1.
type Router struct {
	addr        string
	controllers []Controller
	logger      *slog.Logger
}

type Config struct {
	Addr        string // Address to listen on
	Controllers []Controller
	Logger      *slog.Logger
}

func NewRouter(config Config) *Router {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Router{
		addr:        config.Addr,
		controllers: config.Controllers,
		logger:      logger,
	}
}

// Handler builds the gin engine with every controller mounted.
func (r *Router) Handler() http.Handler {
	router := gin.Default()

	public := router.Group("/v1")
	{
		for _, c := range r.controllers {
			c.RegisterPublic(public)
		}
	}
	return router
}

// Run serves until ctx is cancelled, then shuts the server down.
func (r *Router) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              r.addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("http server listening", "addr", r.addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		r.logger.Info("http server shutting down")
		return server.Shutdown(shutdownCtx)
	}
}
