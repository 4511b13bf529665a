package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/termgraph/internal/application/handlers"
	"github.com/ersonp/termgraph/internal/domain/entities"
)

type relationsFlags struct {
	relType   string
	direction string
	format    string
}

func newRelationsCmd() *cobra.Command {
	var flags relationsFlags

	cmd := &cobra.Command{
		Use:   "relations <term-id>",
		Short: "List relationships for a term",
		Long: `Shows all relationships connected to a term, with optional filtering.

Examples:
  termgraph -g sales relations order
  termgraph -g sales relations order --type parent
  termgraph -g sales relations order --direction incoming --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelations(cmd, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.relType, "type", "", "Filter by relationship type")
	cmd.Flags().StringVar(&flags.direction, "direction", "", "Filter by direction: outgoing, incoming, both")
	cmd.Flags().StringVar(&flags.format, "format", formatTree, "Output format: tree, list, json")

	return cmd
}

func runRelations(cmd *cobra.Command, args []string, flags relationsFlags) error {
	ctx := cmd.Context()
	termID := args[0]

	if !slices.Contains(relationsFormats, flags.format) {
		return fmt.Errorf("invalid format: %s (valid: %s)", flags.format, strings.Join(relationsFormats, ", "))
	}

	return withDeps(ctx, func(deps *Deps) error {
		opts := handlers.ListOptions{
			Type:      flags.relType,
			Direction: flags.direction,
		}

		result, err := deps.Relationships.HandleList(ctx, termID, opts)
		if err != nil {
			return fmt.Errorf("listing relationships: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(result.Relationships) == 0 && flags.format != formatJSON {
			fmt.Fprintf(out, "No relationships found for term: %s\n", termID)
			return nil
		}

		return printRelations(out, result, flags.format)
	})
}

func printRelations(out io.Writer, result *handlers.ListResult, format string) error {
	switch format {
	case formatJSON:
		return printJSON(out, result)
	case formatList:
		printRelationsList(out, result)
	default:
		printRelationsTree(out, result)
	}
	return nil
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func printRelationsList(out io.Writer, result *handlers.ListResult) {
	fmt.Fprintf(out, "Relationships for %s:\n", result.TermID)
	fmt.Fprintln(out, strings.Repeat("-", 60))

	for _, view := range result.Relationships {
		rel := view.Relationship
		fmt.Fprintf(out, "%s -> [%s] -> %s  (%s)\n", rel.SourceTermID, rel.Type, rel.TargetTermID, rel.ID)
	}
}

func printRelationsTree(out io.Writer, result *handlers.ListResult) {
	fmt.Fprintf(out, "%s\n", result.TermID)

	for i, view := range result.Relationships {
		isLast := i == len(result.Relationships)-1

		prefix := "+-"
		if isLast {
			prefix = "\\-"
		}

		arrow := "->"
		if view.Direction == entities.DirectionIncoming {
			arrow = "<-"
		}

		fmt.Fprintf(out, "%s %s %s %s\n", prefix, view.Relationship.Type, arrow, relatedName(view))
	}
}

// relatedName returns the display name of the term at the other end.
func relatedName(view entities.RelationshipView) string {
	if view.RelatedTerm != nil && view.RelatedTerm.Name != "" {
		if view.RelatedTerm.Name == view.RelatedTerm.ID {
			return view.RelatedTerm.ID
		}
		return fmt.Sprintf("%s (%s)", view.RelatedTerm.Name, view.RelatedTerm.ID)
	}
	if view.Direction == entities.DirectionIncoming {
		return view.Relationship.SourceTermID
	}
	return view.Relationship.TargetTermID
}
