// ABOUTME: Web frontend server: listener setup, lifecycle and shutdown
// ABOUTME: Serves on a TCP address or as a node on a tailnet via tsnet

package webui

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/wellness-client/internal/chat"
	"github.com/2389/wellness-client/internal/config"
	"github.com/2389/wellness-client/internal/dedupe"
	"github.com/2389/wellness-client/internal/store"
)

const (
	// cleanupInterval is how often idle sessions are swept.
	cleanupInterval = time.Minute

	// idempotencyTTL is how long a request key is remembered.
	idempotencyTTL = 5 * time.Minute
	idempotencyMax = 10000
)

// Options configures a Server.
type Options struct {
	Web config.WebConfig

	// Chat is the template for every session's controller. View, Recorder
	// and Logger are set per session.
	Chat chat.Options

	Store store.Store

	// Health checks the conversation service for GET /ready. Optional.
	Health func(ctx context.Context) error

	Logger *slog.Logger
}

// Server is the browser frontend.
type Server struct {
	cfg         config.WebConfig
	hub         *hub
	broadcaster *Broadcaster
	store       store.Store
	guard       *dedupe.Guard
	labels      chat.AgentLabels
	health      func(ctx context.Context) error
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger

	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Chat.Transport == nil {
		return nil, errors.New("chat transport is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "webui")

	labels := opts.Chat.Labels
	if labels == nil {
		labels = chat.NewAgentLabels(nil)
	}

	broadcaster := NewBroadcaster(logger)
	s := &Server{
		cfg:         opts.Web,
		hub:         newHub(opts.Chat, opts.Store, broadcaster, opts.Web.SessionTTL, logger),
		broadcaster: broadcaster,
		store:       opts.Store,
		guard:       dedupe.New(idempotencyTTL, idempotencyMax),
		labels:      labels,
		health:      opts.Health,
		logger:      logger,
		closing:     make(chan struct{}),
	}
	s.httpServer = &http.Server{
		Addr:              opts.Web.HTTPAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is canceled or the server fails, then shuts down.
// It returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.listen(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		s.hub.cleanupLoop(gctx, cleanupInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("context canceled, initiating shutdown")
		return s.gracefulShutdown()
	})
	return g.Wait()
}

// gracefulShutdown performs shutdown with a fresh context and timeout, since
// the run context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the server, ending open event streams and any turns in
// flight. The store is left open; its owner closes it.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web frontend")
	s.closeOnce.Do(func() { close(s.closing) })

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))

	s.hub.Close()
	s.broadcaster.Close()

	if s.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", s.tsnetServer.Close())
	}
	return errors.Join(errs...)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// listen creates the listener based on configuration (Tailscale or TCP).
func (s *Server) listen(ctx context.Context) (net.Listener, error) {
	if s.cfg.Tailscale.Enabled {
		if s.cfg.HTTPAddr != "" {
			s.logger.Warn("web.http_addr is ignored when tailscale is enabled", "http_addr", s.cfg.HTTPAddr)
		}
		return s.listenTailscale(ctx)
	}
	ln, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set web.tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "wellness", "tailscale"), nil
}

// listenTailscale starts a tsnet node and returns its HTTP listener.
func (s *Server) listenTailscale(ctx context.Context) (net.Listener, error) {
	tsCfg := s.cfg.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}
	if tsCfg.AuthKey == "" {
		return nil, errors.New("tailscale auth key required: set web.tailscale.auth_key or TS_AUTHKEY")
	}

	s.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   tsCfg.AuthKey,
	}

	s.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := s.tsnetServer.Up(ctx)
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	s.logTailscaleStatus(tsCfg.Hostname, status)

	ln, err := s.tailscaleListener(tsCfg)
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, err
	}
	return ln, nil
}

// logTailscaleStatus logs info about the tailscale node status.
func (s *Server) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		s.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	s.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// tailscaleListener picks plain HTTP, HTTPS with tailnet certs, or Funnel.
func (s *Server) tailscaleListener(tsCfg config.TailscaleConfig) (net.Listener, error) {
	switch {
	case tsCfg.Funnel:
		s.logger.Info("enabling tailscale funnel (public HTTPS) on :443")
		ln, err := s.tsnetServer.ListenFunnel("tcp", ":443")
		if err != nil {
			return nil, fmt.Errorf("listening on tailscale funnel: %w", err)
		}
		return ln, nil
	case tsCfg.HTTPS:
		s.logger.Info("enabling HTTPS with Tailscale certs on :443")
		ln, err := s.tsnetServer.Listen("tcp", ":443")
		if err != nil {
			return nil, fmt.Errorf("listening on tailscale HTTPS port: %w", err)
		}
		lc, err := s.tsnetServer.LocalClient()
		if err != nil {
			_ = ln.Close()
			return nil, fmt.Errorf("getting tailscale local client: %w", err)
		}
		return tls.NewListener(ln, &tls.Config{
			GetCertificate: lc.GetCertificate,
			MinVersion:     tls.VersionTLS12,
		}), nil
	default:
		ln, err := s.tsnetServer.Listen("tcp", ":80")
		if err != nil {
			return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
		}
		return ln, nil
	}
}
