// Package health exposes a small HTTP surface reporting liveness and the
// registry/session counters.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ytget/ytgram/internal/registry"
	"github.com/ytget/ytgram/internal/session"
)

// Server serves the health endpoint.
type Server struct {
	router  *gin.Engine
	srv     *http.Server
	reg     *registry.Registry
	cache   *session.Cache
	started time.Time
	log     *zap.Logger
}

// New builds the health server on the given port.
func New(port string, reg *registry.Registry, cache *session.Cache, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:  gin.New(),
		reg:     reg,
		cache:   cache,
		started: time.Now(),
		log:     log,
	}
	s.router.Use(gin.Recovery())
	s.router.GET("/health", s.handle)
	s.srv = &http.Server{Addr: ":" + port, Handler: s.router}
	return s
}

func (s *Server) handle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"active_downloads": s.reg.Active(),
		"cached_sessions":  s.cache.Len(),
		"uptime_seconds":   int(time.Since(s.started).Seconds()),
	})
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	s.log.Info("health endpoint listening", zap.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
