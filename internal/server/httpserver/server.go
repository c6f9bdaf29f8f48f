package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/yndnr/guildsync/internal/telemetry/logger"
)

// Server is the status and metrics HTTP server.
type Server struct {
	httpServer *http.Server
	limiter    *RateLimiter
	logger     logger.Logger
	listener   net.Listener
	tlsConfig  *tls.Config
	done       chan struct{}
	stop       chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithTLSConfig serves HTTPS with cfg.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(s *Server) {
		s.tlsConfig = cfg
	}
}

// New creates a server. limiter may be nil.
func New(addr string, h http.Handler, limiter *RateLimiter, log logger.Logger, opts ...Option) *Server {
	if log == nil {
		log = logger.Default()
	}
	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
		},
		limiter: limiter,
		logger:  log.With("component", "httpserver"),
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the listener and serves in the background. A bind failure
// is returned so the caller can log it and carry on without the endpoint.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		close(s.done)
		return err
	}
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
	}
	s.listener = ln
	s.logger.Info("http server listening", "addr", ln.Addr().String(), "tls", s.tlsConfig != nil)

	go func() {
		defer close(s.done)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", "error", err)
		}
	}()
	if s.limiter != nil {
		go s.sweep()
	}
	return nil
}

func (s *Server) sweep() {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case now := <-t.C:
			s.limiter.Sweep(now)
		case <-s.stop:
			return
		}
	}
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	select {
	case <-s.stop:
		return nil
	default:
		close(s.stop)
	}
	if s.listener == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	<-s.done
	return err
}
