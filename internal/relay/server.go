package relay

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/firefly-engineering/legacy-relay/internal/errors"
)

// Server wraps the relay with lifecycle management
type Server struct {
	relay  *Relay
	server *http.Server

	// drained is closed once Shutdown has finished.
	drained     chan struct{}
	drainedOnce sync.Once
}

// NewServer creates a new relay server
func NewServer(cfg *Config) (*Server, error) {
	relay, err := New(cfg)
	if err != nil {
		return nil, err
	}

	// No WriteTimeout: a forward call lasts as long as the upstream takes.
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           relay,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		relay:   relay,
		server:  server,
		drained: make(chan struct{}),
	}, nil
}

// Start listens on the configured address and serves until Shutdown.
// It returns nil only after Shutdown has drained in-flight requests and
// closed the audit log.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return errors.ConfigError("failed to listen on "+s.server.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener. Like Start, it does not return
// until Shutdown has finished.
func (s *Server) Serve(ln net.Listener) error {
	s.relay.config.Logger.Info("starting relay server",
		"addr", ln.Addr().String(),
		"upstream", s.relay.config.UpstreamURL,
		"debug_endpoint", s.relay.config.DebugEndpoint)

	err := s.server.Serve(ln)
	if err != http.ErrServerClosed {
		return err
	}
	// Serve returns as soon as Shutdown begins; wait for the drain.
	<-s.drained
	return nil
}

// Shutdown stops accepting connections, waits for in-flight requests until
// ctx is done, then closes the audit log.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.drainedOnce.Do(func() { close(s.drained) })

	err := s.server.Shutdown(ctx)
	if cerr := s.relay.Close(); err == nil {
		err = cerr
	}
	return err
}

// Handler returns the relay handler
func (s *Server) Handler() http.Handler {
	return s.relay
}
