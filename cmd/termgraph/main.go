// Package main provides the entry point for the termgraph CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version           = "0.1.0-dev"
	globalGlossary    string
	globalMetricsFile string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "termgraph",
		Short:         "Typed relationships between glossary terms, hierarchies and learning paths",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&globalGlossary, "glossary", "g", "", "Glossary to operate on (required)")
	rootCmd.PersistentFlags().StringVar(&globalMetricsFile, "metrics-textfile", "", "Write Prometheus metrics to this file after the command")

	rootCmd.AddCommand(
		newInitCmd(),
		newGlossariesCmd(),
		newTermsCmd(),
		newRelateCmd(),
		newRelationsCmd(),
		newHierarchyCmd(),
		newPathCmd(),
		newDiagramCmd(),
		newImportCmd(),
	)

	return rootCmd
}
