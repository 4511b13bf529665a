package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ersonp/termgraph/internal/infrastructure/config"
	"github.com/ersonp/termgraph/internal/infrastructure/logging"
	"github.com/ersonp/termgraph/internal/infrastructure/relationaldb/postgres"
)

func newGlossariesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "glossaries",
		Short: "Manage glossaries",
		RunE:  runGlossariesList,
	}

	cmd.AddCommand(
		newGlossariesListCmd(),
		newGlossariesCreateCmd(),
		newGlossariesDeleteCmd(),
	)

	return cmd
}

func newGlossariesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all glossaries",
		Args:  cobra.NoArgs,
		RunE:  runGlossariesList,
	}
}

func runGlossariesList(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	glossaries, err := config.LoadGlossaries(cwd)
	if err != nil {
		return fmt.Errorf("loading glossaries: %w", err)
	}

	printGlossaries(cmd.OutOrStdout(), glossaries)
	return nil
}

func printGlossaries(out io.Writer, glossaries *config.GlossariesConfig) {
	if len(glossaries.Glossaries) == 0 {
		fmt.Fprintln(out, "No glossaries configured.")
		fmt.Fprintln(out, "Use 'termgraph glossaries create NAME' to create a glossary.")
		return
	}

	fmt.Fprintf(out, "%-20s %-30s %s\n", "NAME", "SCHEMA", "DESCRIPTION")
	fmt.Fprintf(out, "%-20s %-30s %s\n", "----", "------", "-----------")

	for _, g := range glossaries.List() {
		fmt.Fprintf(out, "%-20s %-30s %s\n", g.Name, g.Schema, g.Description)
	}
}

func newGlossariesCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new glossary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGlossariesCreate(cmd, args[0], description)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Glossary description")

	return cmd
}

func runGlossariesCreate(cmd *cobra.Command, name string, description string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	// Check if config exists, if not initialize
	if !config.Exists(cwd) {
		if err := config.WriteDefault(cwd); err != nil {
			return fmt.Errorf("initializing config: %w", err)
		}
		fmt.Fprintf(out, "Initialized termgraph in %s\n", config.ConfigDir(cwd))
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	glossaries, err := config.LoadGlossaries(cwd)
	if err != nil {
		return fmt.Errorf("loading glossaries: %w", err)
	}

	if glossaries.Exists(name) {
		return fmt.Errorf("glossary %q already exists", name)
	}

	glossaries.Add(name, config.GlossaryEntry{
		Schema:      config.SchemaNameForGlossary(name),
		Description: description,
	})

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	stores, err := openGlossaryStores(ctx, cwd, cfg, glossaries, name, logger)
	if err != nil {
		return fmt.Errorf("creating glossary storage: %w", err)
	}
	if err := stores.Close(); err != nil {
		logger.Warn("failed to close glossary storage", zap.Error(err))
	}

	if err := glossaries.Save(cwd); err != nil {
		return fmt.Errorf("saving glossaries: %w", err)
	}

	fmt.Fprintf(out, "Created glossary %q (%s backend)\n", name, cfg.Store.Backend)

	return nil
}

func newGlossariesDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a glossary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGlossariesDelete(cmd, args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete even if glossary contains terms or relationships")

	return cmd
}

func runGlossariesDelete(cmd *cobra.Command, name string, force bool) error {
	ctx := cmd.Context()

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

	if !glossaries.Exists(name) {
		return fmt.Errorf("glossary %q not found", name)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if !force {
		terms, relationships, err := countGlossary(ctx, cwd, cfg, glossaries, name, logger)
		if err == nil && (terms > 0 || relationships > 0) {
			return fmt.Errorf("glossary %q contains %d terms and %d relationships, use --force to delete",
				name, terms, relationships)
		}
	}

	if err := removeGlossaryData(ctx, cwd, cfg, glossaries, name, logger); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not remove data for glossary %q: %v\n", name, err)
	}

	glossaries.Remove(name)
	if err := glossaries.Save(cwd); err != nil {
		return fmt.Errorf("saving glossaries: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted glossary %q\n", name)

	return nil
}

func countGlossary(
	ctx context.Context,
	basePath string,
	cfg *config.Config,
	glossaries *config.GlossariesConfig,
	name string,
	logger *zap.Logger,
) (int, int, error) {
	stores, err := openGlossaryStores(ctx, basePath, cfg, glossaries, name, logger)
	if err != nil {
		return 0, 0, err
	}
	defer stores.Close()

	terms, err := stores.catalog.ListTerms(ctx, "")
	if err != nil {
		return 0, 0, err
	}
	relationships, err := stores.relationships.Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	return len(terms), relationships, nil
}

// removeGlossaryData drops the glossary schema on postgres, or its data
// directory for the file backends.
func removeGlossaryData(
	ctx context.Context,
	basePath string,
	cfg *config.Config,
	glossaries *config.GlossariesConfig,
	name string,
	logger *zap.Logger,
) error {
	if cfg.Store.Backend != config.BackendPostgres {
		return os.RemoveAll(config.GlossaryDir(basePath, name))
	}

	g, err := glossaries.Get(name)
	if err != nil {
		return err
	}
	store, err := postgres.NewStore(ctx, cfg.Postgres, g.Schema, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.DropSchema(ctx)
}
