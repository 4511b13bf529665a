package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/termgraph/internal/application/handlers"
)

type diagramFlags struct {
	contextID string
	format    string
	output    string
}

func newDiagramCmd() *cobra.Command {
	var flags diagramFlags

	cmd := &cobra.Command{
		Use:   "diagram [term-id...]",
		Short: "Export the terms and relationships among them",
		Long: `Projects a set of terms and the relationships among them into a diagram.
Terms are taken from the arguments, or from a bounded context with --context.

Examples:
  termgraph -g sales diagram order invoice customer --format mermaid
  termgraph -g sales diagram --context billing --format markdown -o billing.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagram(cmd, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.contextID, "context", "", "Use every term of this bounded context")
	cmd.Flags().StringVarP(&flags.format, "format", "f", handlers.FormatJSON, "Export format: json, markdown, mermaid")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file path (defaults to stdout)")

	return cmd
}

func runDiagram(cmd *cobra.Command, args []string, flags diagramFlags) error {
	ctx := cmd.Context()

	if !slices.Contains(handlers.ExportFormats, flags.format) {
		return fmt.Errorf("invalid format %q: must be one of %s", flags.format, strings.Join(handlers.ExportFormats, ", "))
	}

	return withDeps(ctx, func(deps *Deps) error {
		d, err := deps.Diagrams.HandleDiagram(ctx, handlers.DiagramRequest{
			TermIDs:   args,
			ContextID: flags.contextID,
		})
		if err != nil {
			return fmt.Errorf("building diagram: %w", err)
		}

		var out io.Writer = cmd.OutOrStdout()
		if flags.output != "" {
			f, err := os.Create(flags.output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()

			w := bufio.NewWriter(f)
			if err := deps.Diagrams.HandleExport(w, d, flags.format); err != nil {
				return fmt.Errorf("exporting diagram: %w", err)
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("writing output file: %w", err)
			}

			fmt.Fprintf(out, "Exported %d terms and %d relationships to %s\n", len(d.Nodes), len(d.Edges), flags.output)
			return nil
		}

		return deps.Diagrams.HandleExport(out, d, flags.format)
	})
}
