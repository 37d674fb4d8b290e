package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirerelay/internal/config"
	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/metrics"
	"github.com/vovakirdan/wirerelay/internal/session"
	transporthttp "github.com/vovakirdan/wirerelay/internal/transport/http"
	"github.com/vovakirdan/wirerelay/internal/transport/tcp"
)

// App wires together core and transport layers.
type App struct {
	cfg             config.Config
	registry        *core.Registry
	tcp             *tcp.Server
	http            *stdhttp.Server
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
// The admin HTTP server is disabled when cfg.HTTPAddr is empty.
func New(cfg config.Config, logger *zerolog.Logger) *App {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	m := metrics.New()
	registry := core.NewRegistry(logger, m)

	a := &App{
		cfg:      cfg,
		registry: registry,
		tcp: tcp.NewServer(cfg.Addr, registry, logger, m, session.Options{
			SendQueueSize:      cfg.SendQueueSize,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
			WriteTimeout:       cfg.WriteTimeout,
		}),
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}
	if cfg.HTTPAddr != "" {
		a.http = transporthttp.NewServer(registry, cfg, logger, m)
	}
	return a
}

// Registry exposes the shared registry.
func (a *App) Registry() *core.Registry {
	return a.registry
}

// Run starts the servers and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	tcpLn, err := net.Listen("tcp", a.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Addr, err)
	}

	var httpLn net.Listener
	if a.http != nil {
		httpLn, err = net.Listen("tcp", a.cfg.HTTPAddr)
		if err != nil {
			_ = tcpLn.Close()
			return fmt.Errorf("listen %s: %w", a.cfg.HTTPAddr, err)
		}
	}

	return a.serve(ctx, tcpLn, httpLn)
}

func (a *App) serve(ctx context.Context, tcpLn, httpLn net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.tcp.Serve(ctx, tcpLn)
	})

	if a.http != nil && httpLn != nil {
		a.http.BaseContext = func(net.Listener) context.Context { return ctx }

		g.Go(func() error {
			a.log.Info().Str("addr", httpLn.Addr().String()).Msg("http server listening")
			if err := a.http.Serve(httpLn); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
			defer cancel()

			a.log.Info().Msg("shutting down http server")
			return a.http.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
