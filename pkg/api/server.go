package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go-vortexguard/pkg/logger"
)

// Server wraps the http.Server to provide graceful shutdown.
type Server struct {
	httpServer *http.Server
	handlers   *Handlers
}

func NewServer(port string, deps Deps) *Server {
	h := NewHandlers(deps)
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           NewRouter(h),
			ReadHeaderTimeout: 10 * time.Second,
		},
		handlers: h,
	}
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves in a new goroutine. Listen failures are sent on the returned
// channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	logger.Log.Infof("starting HTTP server on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown stops accepting requests, then waits for in-flight event dispatch.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Infof("shutting down HTTP server...")
	err := s.httpServer.Shutdown(ctx)
	s.handlers.Wait()
	return err
}
