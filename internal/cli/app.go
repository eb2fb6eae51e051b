package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/EcliqseX/vetsim/internal/api"
	"github.com/EcliqseX/vetsim/internal/catalog"
	"github.com/EcliqseX/vetsim/internal/clinic"
	"github.com/EcliqseX/vetsim/internal/database"
	"github.com/EcliqseX/vetsim/internal/domain"
	"github.com/EcliqseX/vetsim/internal/ledger"
	"github.com/EcliqseX/vetsim/internal/metrics"
	"github.com/EcliqseX/vetsim/internal/random"
	"github.com/EcliqseX/vetsim/internal/session"
)

// app is everything `vetsim serve` wires together.
type app struct {
	registry *session.Registry
	ledger   ledger.Store
	metrics  *metrics.Metrics
	hub      *api.Hub
	closers  []func() error
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func (a *app) deps(logger *logrus.Logger) api.Deps {
	return api.Deps{
		Registry: a.registry,
		Ledger:   a.ledger,
		Metrics:  a.metrics,
		Hub:      a.hub,
		Logger:   logger,
	}
}

// buildApp assembles the engine, its observers and the storage backends
// from cfg. On error everything opened so far is closed.
func buildApp(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	store, closeLedger, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.ledger = store
	a.closers = append(a.closers, closeLedger)

	a.metrics = metrics.New(func() float64 {
		if a.registry == nil {
			return 0
		}
		n, err := a.registry.Len(context.Background())
		if err != nil {
			return 0
		}
		return float64(n)
	})
	a.hub = api.NewHub(logger)

	opts := []clinic.Option{
		clinic.WithLogger(logger),
		clinic.WithSettings(clinic.Settings{
			StartingMoney:      cfg.Clinic.StartingMoney,
			StartingReputation: cfg.Clinic.StartingReputation,
			InitialCases:       cfg.Clinic.InitialCases,
			ReseedCases:        cfg.Clinic.ReseedCases,
		}),
		clinic.WithObserver(a.metrics),
		clinic.WithObserver(a.hub),
	}
	if store != nil {
		recorder := ledger.NewRecorder(store, ledger.RecorderConfig{
			WriteTimeout:   cfg.Ledger.WriteTimeout,
			BreakerTimeout: cfg.Ledger.BreakerTimeout,
			BreakerRatio:   cfg.Ledger.BreakerRatio,
		}, logger)
		opts = append(opts, clinic.WithObserver(recorder))
	}

	engine, err := clinic.NewEngine(cat, newSource(cfg.Clinic.Seed), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	sessions, err := openSessionStore(cfg, cat, logger)
	if err != nil {
		return nil, err
	}
	a.registry = session.NewRegistry(engine, sessions, logger)
	a.closers = append(a.closers, a.registry.Close)

	logger.WithFields(logrus.Fields{
		"diseases":        len(cat.Diseases()),
		"tests":           len(cat.Tests()),
		"session_backend": cfg.Sessions.Backend,
		"ledger_driver":   cfg.Ledger.Driver,
	}).Info("Clinic engine ready")
	return a, nil
}

func newSource(seed uint64) random.Source {
	if seed != 0 {
		return random.New(seed)
	}
	return random.NewFromTime()
}

func openSessionStore(cfg *domain.Config, cat *catalog.Catalog, logger *logrus.Logger) (session.Store, error) {
	switch cfg.Sessions.Backend {
	case "redis":
		store, err := session.NewRedisStore(cfg.Cache, cat, cfg.Sessions.TTL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store, nil
	case "memory", "":
		return session.NewMemoryStore(cfg.Sessions.MaxSessions, cfg.Sessions.TTL, func(id string) {
			logger.WithField("session_id", id).Debug("Session evicted")
		}), nil
	default:
		return nil, fmt.Errorf("invalid session backend: %s", cfg.Sessions.Backend)
	}
}

// openLedger opens the configured ledger. The "none" driver returns a nil
// store and a no-op closer.
func openLedger(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (ledger.Store, func() error, error) {
	switch cfg.Ledger.Driver {
	case "none":
		return nil, func() error { return nil }, nil
	case "sqlite", "":
		store, err := ledger.NewSQLiteStore(cfg.Ledger.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite ledger: %w", err)
		}
		return store, store.Close, nil
	case "postgres":
		dbCfg := database.ConfigFrom(cfg.Database)
		if err := migrateUp(ctx, cfg.Database.MigrationsPath, dbCfg.URL(), logger); err != nil {
			return nil, nil, err
		}
		db, err := database.NewConnection(ctx, dbCfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		store, err := ledger.NewPostgresStore(ctx, db.Pool)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to open postgres ledger: %w", err)
		}
		return store, func() error {
			db.Close()
			return nil
		}, nil
	default:
		return nil, nil, fmt.Errorf("invalid ledger driver: %s", cfg.Ledger.Driver)
	}
}

// newMigrationRunner reads migrations from migrationsPath, or from the
// migrations compiled into the binary when it is empty.
func newMigrationRunner(migrationsPath, url string, logger *logrus.Logger) (*database.MigrationRunner, error) {
	if migrationsPath == "" {
		return database.NewEmbeddedMigrationRunner(ledger.Migrations, ledger.MigrationsDir, url, logger)
	}
	return database.NewMigrationRunner(url, migrationsPath, logger)
}

func migrateUp(ctx context.Context, migrationsPath, url string, logger *logrus.Logger) error {
	runner, err := newMigrationRunner(migrationsPath, url, logger)
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	defer runner.Close()

	if err := runner.Up(ctx); err != nil {
		return fmt.Errorf("failed to migrate ledger schema: %w", err)
	}
	return nil
}
