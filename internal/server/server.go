package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chefshare/backend/internal/logger"
)

// Server wraps the HTTP server lifecycle.
type Server struct {
	http *http.Server
	log  *logger.Logger
}

// New creates a server serving the given router.
func New(router *gin.Engine, host, port string, log *logger.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:         fmt.Sprintf("%s:%s", host, port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

// Start begins serving requests. It blocks until the listener fails or the
// server is shut down.
func (s *Server) Start() error {
	s.log.WithField("addr", s.http.Addr).Info("starting HTTP server")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}
