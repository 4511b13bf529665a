package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/termgraph/internal/application/handlers"
)

type importFlags struct {
	format     string
	dryRun     bool
	onConflict string
}

func newImportCmd() *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import terms and relationships from JSON or CSV",
		Long: `Imports a glossary from a structured file. Terms are saved first, then
relationships are created in file order. Relationships that would form a
cycle or reference unknown terms are reported and skipped.

A JSON file holds {"terms": [...], "relationships": [...]}. A CSV file holds
either terms (id,name,context,definition,status,essential) or relationships
(source,type,target,description), chosen by its header.

Examples:
  termgraph -g sales import glossary.json
  termgraph -g sales import terms.csv --on-conflict overwrite
  termgraph -g sales import relationships.csv --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "auto", "File format (json, csv, auto)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Validate without saving")
	cmd.Flags().StringVar(&flags.onConflict, "on-conflict", "skip", "Existing term handling (skip, overwrite)")

	return cmd
}

func runImport(cmd *cobra.Command, filePath string, flags importFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	return withDeps(ctx, func(deps *Deps) error {
		fmt.Fprintf(out, "Importing %s...\n", filePath)

		result, err := deps.Import.Handle(ctx, filePath, handlers.ImportOptions{
			Format:     flags.format,
			DryRun:     flags.dryRun,
			OnConflict: flags.onConflict,
		})
		if err != nil {
			return fmt.Errorf("importing file: %w", err)
		}

		if len(result.Errors) > 0 {
			fmt.Fprintf(out, "\nErrors (%d):\n", len(result.Errors))
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  %s\n", e.Error())
			}
		}

		fmt.Fprintln(out)
		verb := "Imported"
		if flags.dryRun {
			verb = "Dry run, would import"
		}
		fmt.Fprintf(out, "%s: %d terms, %d relationships", verb, result.TermsImported, result.RelationshipsImported)

		if skipped := result.TermsSkipped + result.RelationshipsSkipped; skipped > 0 {
			fmt.Fprintf(out, ", %d skipped (already exist)", skipped)
		}
		if len(result.Errors) > 0 {
			fmt.Fprintf(out, ", %d errors", len(result.Errors))
		}
		fmt.Fprintln(out)

		return nil
	})
}
