// Package statusserver exposes a minimal HTTP surface for liveness checks
// and operator-facing status: two Gin routes, /healthz reporting database
// health and /status reporting configuration and queue stats.
package statusserver

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/civicsync/civicsync/pkg/conductor"
	"github.com/civicsync/civicsync/pkg/config"
	"github.com/civicsync/civicsync/pkg/database"
)

// Server wraps a Gin router reporting database connectivity, loaded
// configuration stats, and the conductor's queue/sync status.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
}

// New builds the router. ginMode is passed straight to gin.SetMode
// ("debug", "release", or "test"); callers typically source it from the
// GIN_MODE environment variable.
func New(addr string, ginMode string, db *sql.DB, cfg *config.Config, cond *conductor.Conductor) *Server {
	gin.SetMode(ginMode)
	router := gin.Default()

	router.GET("/healthz", func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		dbHealth, err := database.Health(reqCtx, db)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": dbHealth,
				"error":    err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": dbHealth,
		})
	})

	router.GET("/status", func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		status, err := cond.Status(reqCtx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"queue":          status.Queue,
			"last_sync":      status.LastResults,
			"configuration":  cfg.Stats(),
			"llm_configured": cfg.HasLLMCredentials,
		})
	})

	return &Server{
		router:     router,
		httpServer: &http.Server{Addr: addr, Handler: router},
	}
}

// Handler exposes the underlying router for tests that want to drive
// requests directly via httptest without binding a real port.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks serving HTTP until the server is shut down or an
// unrecoverable error occurs.
func (s *Server) ListenAndServe() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server, waiting for in-flight
// requests to finish or ctx to expire, whichever comes first.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
