package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/leafbox-next/internal/config"
	"github.com/leafbox-next/internal/logger"
)

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

// HTTPService serves the storefront, webhook and back-office API.
type HTTPService struct {
	server *http.Server

	mu   sync.Mutex
	addr net.Addr
}

// NewHTTPService creates the HTTP service. Zero timeouts fall back to
// conservative defaults; webhook senders retry on timeouts anyway.
func NewHTTPService(cfg config.ServerConfig, handler http.Handler) *HTTPService {
	return &HTTPService{
		server: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       seconds(cfg.ReadTimeoutSeconds, 15*time.Second),
			WriteTimeout:      seconds(cfg.WriteTimeoutSeconds, 30*time.Second),
			IdleTimeout:       seconds(cfg.IdleTimeoutSeconds, 60*time.Second),
			ErrorLog:          logger.StdLogger(),
		},
	}
}

// Name service name
func (s *HTTPService) Name() string {
	return "http"
}

// Addr bound address, nil before Start has bound the port
func (s *HTTPService) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start binds the port and blocks until the listener closes.
func (s *HTTPService) Start(_ context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("http server not initialized")
	}
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	logger.Infow("http_listening", "addr", ln.Addr().String())

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests.
func (s *HTTPService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
