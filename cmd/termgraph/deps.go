package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ersonp/termgraph/internal/application/handlers"
	"github.com/ersonp/termgraph/internal/domain/ports"
	"github.com/ersonp/termgraph/internal/domain/services"
	"github.com/ersonp/termgraph/internal/infrastructure/config"
	"github.com/ersonp/termgraph/internal/infrastructure/kvstore/badger"
	"github.com/ersonp/termgraph/internal/infrastructure/logging"
	"github.com/ersonp/termgraph/internal/infrastructure/relationaldb/postgres"
	"github.com/ersonp/termgraph/internal/infrastructure/relationaldb/sqlite"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config        *config.Config
	Glossaries    *config.GlossariesConfig
	Relationships *handlers.RelationshipHandler
	Terms         *handlers.TermHandler
	Onboarding    *handlers.OnboardingHandler
	Diagrams      *handlers.DiagramHandler
	Import        *handlers.ImportHandler
}

// internalDeps holds all dependencies including low-level components.
type internalDeps struct {
	Deps
	stores   *glossaryStores
	logger   *zap.Logger
	registry *prometheus.Registry
}

// glossaryStores holds the ports backing one glossary.
type glossaryStores struct {
	relationships ports.RelationshipStore
	catalog       ports.TermCatalog
	progress      ports.LearningProgress
	audit         ports.AuditLog
	closers       []func() error
}

func (s *glossaryStores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// withDeps loads config and builds dependencies for the selected glossary,
// then calls the provided function. It handles cleanup automatically.
func withDeps(ctx context.Context, fn func(*Deps) error) error {
	return withInternalDeps(ctx, func(d *internalDeps) error {
		return fn(&d.Deps)
	})
}

// withInternalDeps provides access to all dependencies including low-level components.
func withInternalDeps(ctx context.Context, fn func(*internalDeps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	glossaries, err := config.LoadGlossaries(cwd)
	if err != nil {
		return fmt.Errorf("loading glossaries: %w", err)
	}

	if globalGlossary == "" {
		return errors.New("glossary is required (use --glossary flag)")
	}
	if _, err := glossaries.Get(globalGlossary); err != nil {
		return err
	}

	rules, err := cfg.HierarchyRules()
	if err != nil {
		return fmt.Errorf("loading relation rules: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("glossary", globalGlossary))

	stores, err := openGlossaryStores(ctx, cwd, cfg, glossaries, globalGlossary, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	registry := prometheus.NewRegistry()
	metrics := services.NewMetrics(registry)

	relationshipService := services.NewRelationshipService(stores.relationships, stores.catalog, rules,
		services.WithLogger(logger),
		services.WithMetrics(metrics),
		services.WithAuditLog(stores.audit),
	)
	termService := services.NewTermService(stores.catalog, relationshipService, stores.progress, logger)
	resolver := services.NewDependencyResolver(stores.relationships, rules, logger, metrics)
	projector := services.NewDiagramProjector(stores.relationships, stores.catalog, logger)
	importService := services.NewImportService(termService, relationshipService, stores.catalog, logger)

	deps := &internalDeps{
		Deps: Deps{
			Config:        cfg,
			Glossaries:    glossaries,
			Relationships: handlers.NewRelationshipHandler(relationshipService),
			Terms:         handlers.NewTermHandler(termService),
			Onboarding:    handlers.NewOnboardingHandler(resolver, stores.catalog, stores.progress),
			Diagrams:      handlers.NewDiagramHandler(projector),
			Import:        handlers.NewImportHandler(importService),
		},
		stores:   stores,
		logger:   logger,
		registry: registry,
	}

	runErr := fn(deps)

	if err := writeMetrics(deps); err != nil {
		logger.Warn("failed to write metrics", zap.Error(err))
	}

	return runErr
}

// writeMetrics dumps the command's metrics when a textfile is configured.
func writeMetrics(d *internalDeps) error {
	path := globalMetricsFile
	if path == "" {
		path = d.Config.Metrics.Textfile
	}
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, d.registry)
}

// openGlossaryStores opens the stores for a glossary according to the
// configured backend and ensures their schemas exist.
func openGlossaryStores(
	ctx context.Context,
	basePath string,
	cfg *config.Config,
	glossaries *config.GlossariesConfig,
	name string,
	logger *zap.Logger,
) (*glossaryStores, error) {
	if cfg.Store.Backend == config.BackendPostgres {
		g, err := glossaries.Get(name)
		if err != nil {
			return nil, err
		}
		store, err := postgres.NewStore(ctx, cfg.Postgres, g.Schema, logger)
		if err != nil {
			return nil, fmt.Errorf("creating postgres store: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("ensuring postgres schema: %w", err)
		}
		return &glossaryStores{
			relationships: store,
			catalog:       store,
			progress:      store,
			audit:         store,
			closers:       []func() error{store.Close},
		}, nil
	}

	if err := os.MkdirAll(config.GlossaryDir(basePath, name), 0755); err != nil {
		return nil, fmt.Errorf("creating glossary directory: %w", err)
	}

	// Initialize RelationalDB (SQLite)
	repo, err := sqlite.NewRepository(config.SQLiteConfig{Path: config.SQLitePathForGlossary(basePath, name)})
	if err != nil {
		return nil, fmt.Errorf("creating sqlite repository: %w", err)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("ensuring sqlite schema: %w", err)
	}

	stores := &glossaryStores{
		relationships: repo,
		catalog:       repo,
		progress:      repo,
		audit:         repo,
		closers:       []func() error{repo.Close},
	}

	if cfg.Store.Backend == config.BackendBadger {
		kv, err := badger.Open(badger.Config{
			Path:       config.BadgerPathForGlossary(basePath, name),
			SyncWrites: cfg.Badger.SyncWrites,
			Logger:     logger,
		})
		if err != nil {
			stores.Close()
			return nil, fmt.Errorf("opening badger store: %w", err)
		}
		stores.relationships = kv
		stores.closers = append(stores.closers, kv.Close)
	}

	return stores, nil
}
