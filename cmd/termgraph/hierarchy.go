package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/termgraph/internal/domain/entities"
)

func newHierarchyCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "hierarchy [root-term]",
		Short: "Show the term hierarchy",
		Long: `Shows the tree of terms below a root, following hierarchical relationships
toward children. Without a root, every hierarchical relationship is listed.

Examples:
  termgraph -g sales hierarchy aggregate
  termgraph -g sales hierarchy --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if !slices.Contains(hierarchyFormats, format) {
				return fmt.Errorf("invalid format: %s (valid: %s)", format, strings.Join(hierarchyFormats, ", "))
			}

			root := ""
			if len(args) == 1 {
				root = args[0]
			}

			return withDeps(ctx, func(deps *Deps) error {
				h, err := deps.Relationships.HandleHierarchy(ctx, root)
				if err != nil {
					return fmt.Errorf("building hierarchy: %w", err)
				}

				out := cmd.OutOrStdout()
				if format == formatJSON {
					return printJSON(out, h)
				}
				printHierarchy(out, h)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTree, "Output format: tree, json")

	return cmd
}

func printHierarchy(out io.Writer, h *entities.Hierarchy) {
	if h.Root != nil {
		fmt.Fprintln(out, h.Root.TermID)
		printHierarchyChildren(out, h.Root.Children, "")
		return
	}

	if len(h.Edges) == 0 {
		fmt.Fprintln(out, "No hierarchical relationships found.")
		return
	}

	for _, rel := range h.Edges {
		fmt.Fprintf(out, "%s -[%s]-> %s\n", rel.SourceTermID, rel.Type, rel.TargetTermID)
	}
}

func printHierarchyChildren(out io.Writer, children []*entities.HierarchyNode, indent string) {
	for i, child := range children {
		isLast := i == len(children)-1

		prefix, next := "+- ", "|  "
		if isLast {
			prefix, next = "\\- ", "   "
		}

		fmt.Fprintf(out, "%s%s%s\n", indent, prefix, child.TermID)
		printHierarchyChildren(out, child.Children, indent+next)
	}
}
