// Package tcp accepts raw stream connections and runs one session per conn.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/metrics"
	"github.com/vovakirdan/wirerelay/internal/session"
)

// Server is the TCP front door of the relay.
type Server struct {
	addr     string
	registry *core.Registry
	log      *zerolog.Logger
	metrics  *metrics.Metrics
	opts     session.Options

	wg sync.WaitGroup
}

// NewServer creates a server listening on addr once started.
func NewServer(addr string, registry *core.Registry, logger *zerolog.Logger, m *metrics.Metrics, opts session.Options) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	opts.Transport = "tcp"
	return &Server{
		addr:     addr,
		registry: registry,
		log:      logger,
		metrics:  m,
		opts:     opts,
	}
}

// ListenAndServe listens on the configured address and serves until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then waits for
// every running session to finish. Cancelling ctx also ends the sessions.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info().Str("addr", ln.Addr().String()).Msg("tcp server listening")

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()
	defer s.wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.log.Info().Msg("tcp server stopped")
				return nil
			}
			s.log.Error().Err(err).Msg("accept connection")
			return fmt.Errorf("accept: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sess := session.New(conn, s.registry, s.log, s.metrics, s.opts)
			_ = sess.Run(ctx)
		}()
	}
}
