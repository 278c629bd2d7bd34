// Package httpapi serves the web chat API.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bowerhall/studybuddy/internal/agent"
	"github.com/bowerhall/studybuddy/internal/logger"
)

// Opts holds configuration for the HTTP server.
type Opts struct {
	Agent *agent.Agent
	Addr  string
	// SecureCookie marks the session cookie Secure, for HTTPS deployments.
	SecureCookie bool
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts Opts) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	registerRoutes(router, &handlers{agent: opts.Agent, secureCookie: opts.SecureCookie})
	return router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts Opts) error {
	if opts.Agent == nil {
		return fmt.Errorf("httpapi: agent is required")
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}

	gin.SetMode(gin.ReleaseMode)

	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           NewRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("http api listening", "addr", opts.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("httpapi: %w", err)
	}
	return nil
}
