// Package mcp exposes a clinic over the Model Context Protocol. The connected
// agent is the player: it calls patients in, orders tests and submits
// diagnoses through tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/EcliqseX/vetsim/internal/catalog"
	"github.com/EcliqseX/vetsim/internal/clinic"
	litecfg "github.com/EcliqseX/vetsim/internal/config"
	"github.com/EcliqseX/vetsim/internal/ledger"
	"github.com/EcliqseX/vetsim/internal/logging"
	"github.com/EcliqseX/vetsim/internal/random"
	"github.com/EcliqseX/vetsim/internal/session"
)

const (
	ServerName    = "vetsim"
	ServerVersion = "v1.0.0"
)

// LiteServer is a single-player MCP server that needs no external services.
// Sessions live in memory and diagnoses are recorded to a SQLite ledger.
type LiteServer struct {
	config    *litecfg.LiteConfig
	mcpServer *mcp.Server
	registry  *session.Registry
	ledger    ledger.Store
	recorder  *ledger.Recorder
	source    random.Source
	logger    *logrus.Logger

	mu        sync.Mutex
	sessionID string
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithLedgerStore sets a custom ledger store instead of the SQLite file
// under the data directory.
func WithLedgerStore(store ledger.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.ledger = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithRandomSource replaces the seeded random source.
func WithRandomSource(src random.Source) LiteServerOption {
	return func(s *LiteServer) error {
		s.source = src
		return nil
	}
}

// NewLiteServer creates the MCP server. The clinic opens on the first tool
// call that needs it.
func NewLiteServer(cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	logger, err := logging.ForStdio(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	server := &LiteServer{
		config: cfg,
		logger: logger,
	}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	if server.ledger == nil {
		store, err := ledger.NewSQLiteStore(cfg.LedgerDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create ledger store: %w", err)
		}
		server.ledger = store
	}
	server.recorder = ledger.NewRecorder(server.ledger, ledger.DefaultRecorderConfig(), server.logger)

	if server.source == nil {
		if cfg.Seed != 0 {
			server.source = random.New(cfg.Seed)
		} else {
			server.source = random.NewFromTime()
		}
	}

	engine, err := clinic.NewEngine(cat, server.source,
		clinic.WithLogger(server.logger),
		clinic.WithObserver(server.recorder),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	store := session.NewMemoryStore(cfg.MaxSessions, cfg.SessionTTL, func(id string) {
		server.logger.WithField("session_id", id).Debug("Session evicted")
	})
	server.registry = session.NewRegistry(engine, store, server.logger)

	server.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, nil)
	server.registerTools()
	server.registerResources()

	server.logger.Info("Lite server initialized successfully")
	return server, nil
}

// Start serves MCP over stdin and stdout until ctx is cancelled or the
// client disconnects.
func (s *LiteServer) Start(ctx context.Context) error {
	s.logger.Info("Starting vetsim MCP server (stdio)...")
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Run serves MCP over an arbitrary transport.
func (s *LiteServer) Run(ctx context.Context, transport mcp.Transport) error {
	if err := s.mcpServer.Run(ctx, transport); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

// Server returns the underlying MCP server.
func (s *LiteServer) Server() *mcp.Server {
	return s.mcpServer
}

// Close releases the session cache and the ledger.
func (s *LiteServer) Close() error {
	s.logger.Info("Shutting down vetsim MCP server...")
	return errors.Join(s.registry.Close(), s.ledger.Close())
}

// withSession runs fn against the player's clinic, opening one on first use
// or after the previous one expired.
func (s *LiteServer) withSession(ctx context.Context, fn func(*clinic.SessionState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessionID != "" {
		err := s.registry.Do(ctx, s.sessionID, fn)
		if !errors.Is(err, session.ErrNotFound) {
			return err
		}
		s.logger.WithField("session_id", s.sessionID).Warn("Clinic session lost, opening a new one")
	}

	if _, err := s.openSession(ctx); err != nil {
		return err
	}
	return s.registry.Do(ctx, s.sessionID, fn)
}

// openSession replaces the current clinic with a fresh one. Callers hold mu.
func (s *LiteServer) openSession(ctx context.Context) (*clinic.SessionState, error) {
	if s.sessionID != "" {
		if err := s.registry.Delete(ctx, s.sessionID); err != nil && !errors.Is(err, session.ErrNotFound) {
			return nil, fmt.Errorf("failed to close previous session: %w", err)
		}
	}
	state, err := s.registry.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	s.sessionID = state.ID
	return state, nil
}
