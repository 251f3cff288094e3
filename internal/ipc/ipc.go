// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/openbmc-go/chassisd/pkg/log"
)

// Server embeds a NATS server and serves as the in-process message bus
// for the chassisd binary. It is started and stopped by cmd/chassisd's
// main, which runs it alongside the chassisd.Service it feeds.
type Server struct {
	cfg    *config
	srv    *server.Server
	logger *slog.Logger
}

// New creates an IPC server with the given options. The server is not
// started until Run is called.
func New(opts ...Option) *Server {
	cfg := &config{
		serverName:      DefaultServerName,
		storeDir:        DefaultStoreDir,
		enableJetStream: true,
		startupTimeout:  DefaultStartupTimeout,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return &Server{cfg: cfg}
}

// Run starts the embedded NATS server and blocks until ctx is canceled,
// then shuts the server down. It satisfies the shape cmd/chassisd needs
// to run the bus alongside chassisd.Service, though it does not
// implement service.Service itself since nothing else in this module
// hosts it under a shared supervision loop.
func (s *Server) Run(ctx context.Context) error {
	s.logger = log.GetGlobalLogger().With("component", "ipc")

	if err := s.cfg.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	opts := &server.Options{
		ServerName:      s.cfg.serverName,
		DontListen:      true,
		JetStream:       s.cfg.enableJetStream,
		StoreDir:        s.cfg.storeDir,
		NoSigs:          true,
		NoLog:           false,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServerCreationFailed, err)
	}
	s.srv = ns
	s.srv.SetLoggerV2(log.NewNATSLogger(s.logger), true, false, false)

	s.logger.InfoContext(ctx, "starting embedded NATS server", "server_name", s.cfg.serverName)
	s.srv.Start()

	if !s.srv.ReadyForConnections(s.cfg.startupTimeout) {
		s.srv.Shutdown()
		return ErrServerTimeout
	}
	s.logger.InfoContext(ctx, "embedded NATS server ready", "server_id", s.srv.ID())

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.shutdownTimeout)
	defer cancel()

	s.logger.InfoContext(shutdownCtx, "shutting down embedded NATS server")
	s.srv.LameDuckShutdown()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.srv.Shutdown()
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.shutdownTimeout):
		s.logger.WarnContext(shutdownCtx, "NATS server shutdown timed out, forced")
	}

	return ctx.Err()
}

// ConnProvider returns a provider for in-process connections to this
// server. It may be called before Run completes startup; the provider's
// InProcessConn blocks until the server becomes ready or times out.
func (s *Server) ConnProvider() *ConnProvider {
	timeout := time.Now().Add(s.cfg.startupTimeout)
	for s.srv == nil && time.Now().Before(timeout) {
		time.Sleep(time.Millisecond)
	}
	return &ConnProvider{srv: s.srv}
}
