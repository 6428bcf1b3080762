package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/potatoserver/internal/config"
	"github.com/Tyrowin/potatoserver/internal/hub"
)

// Server owns the HTTP surface in front of a hub.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	settings SettingsStore
	log      *zap.Logger
	upgrader websocket.Upgrader
	router   *mux.Router
	http     *http.Server
}

// New builds a Server and its routes. store may be nil, in which case the
// settings API is not mounted.
func New(cfg *config.Config, h *hub.Hub, store SettingsStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("server")

	origins := newOriginPolicy(cfg.Origins(), logger)
	s := &Server{
		cfg:      cfg,
		hub:      h,
		settings: store,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
	}
	s.router = s.routes()
	s.http = CreateServer(cfg.Port, s.router)
	return s
}

// Handler returns the router serving every endpoint.
func (s *Server) Handler() http.Handler { return s.router }

// CreateServer creates and configures an HTTP server with the specified port and handler.
// It sets reasonable timeout values for production use.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ListenAndServe blocks serving HTTP until Shutdown is called, in which case
// it returns nil.
func (s *Server) ListenAndServe() error {
	s.log.Info("server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then closes every WebSocket connection
// through the hub. Hijacked connections are not tracked by http.Server, so
// the hub shutdown is what waits for them.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	httpErr := s.http.Shutdown(ctx)
	if httpErr != nil {
		s.log.Warn("HTTP server shutdown error", zap.Error(httpErr))
	}

	hubErr := s.hub.Shutdown(ctx)
	if hubErr != nil {
		s.log.Warn("hub shutdown error", zap.Error(hubErr))
	}

	if httpErr != nil {
		return httpErr
	}
	if hubErr != nil {
		return hubErr
	}
	s.log.Info("server shutdown completed")
	return nil
}
