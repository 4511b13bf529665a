package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/termgraph/internal/application/handlers"
)

func newRelateCmd() *cobra.Command {
	var (
		description string
		requestedBy string
	)

	cmd := &cobra.Command{
		Use:   "relate <source-term> <type> <target-term>",
		Short: "Create a relationship between two terms",
		Long: `Creates a typed, directed relationship between two existing terms.
Hierarchical types are checked for cycles.

Valid relationship types:
  - parent, child, inheritance, dependency
  - synonym, antonym, related
  - aggregation, association

Examples:
  termgraph -g sales relate order parent aggregate
  termgraph -g sales relate invoice dependency order --description "billed per order"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelate(cmd, args, description, requestedBy)
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Relationship description")
	cmd.Flags().StringVar(&requestedBy, "by", "", "Who requested the relationship")

	cmd.AddCommand(
		newRelateDeleteCmd(),
		newRelateUnlinkCmd(),
		newRelateUpdateCmd(),
	)

	return cmd
}

func runRelate(cmd *cobra.Command, args []string, description, requestedBy string) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(deps *Deps) error {
		rel, err := deps.Relationships.HandleCreate(ctx, handlers.CreateRelationshipRequest{
			Source:      args[0],
			Type:        args[1],
			Target:      args[2],
			Description: description,
			RequestedBy: requestedBy,
		})
		if err != nil {
			return fmt.Errorf("creating relationship: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created relationship: %s\n", rel.ID)
		fmt.Fprintf(out, "  %s -[%s]-> %s\n", rel.SourceTermID, rel.Type, rel.TargetTermID)
		return nil
	})
}

func newRelateDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <relationship-id>",
		Short: "Delete a relationship",
		Long:  "Deletes an existing relationship by its ID.",
		Args:  cobra.ExactArgs(1),
		RunE:  runRelateDelete,
	}
}

func runRelateDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	relID := args[0]

	return withDeps(ctx, func(deps *Deps) error {
		if err := deps.Relationships.HandleDelete(ctx, relID); err != nil {
			return fmt.Errorf("deleting relationship: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted relationship: %s\n", relID)
		return nil
	})
}

func newRelateUnlinkCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "unlink <source-term> <target-term>",
		Short: "Delete the relationship from one term to another",
		Long: `Deletes the relationship from source to target. When several typed
relationships connect the pair, --all is required to remove them together.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(deps *Deps) error {
				n, err := deps.Relationships.HandleUnlink(ctx, args[0], args[1], all)
				if err != nil {
					return fmt.Errorf("unlinking terms: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d relationship(s) from %s to %s\n", n, args[0], args[1])
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Delete every relationship between the pair")

	return cmd
}

func newRelateUpdateCmd() *cobra.Command {
	var (
		relType     string
		description string
	)

	cmd := &cobra.Command{
		Use:   "update <relationship-id>",
		Short: "Change the type or description of a relationship",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var req handlers.UpdateRelationshipRequest
			if cmd.Flags().Changed("type") {
				req.Type = &relType
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}

			return withDeps(ctx, func(deps *Deps) error {
				rel, err := deps.Relationships.HandleUpdate(ctx, args[0], req)
				if err != nil {
					return fmt.Errorf("updating relationship: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated relationship: %s\n  %s -[%s]-> %s\n",
					rel.ID, rel.SourceTermID, rel.Type, rel.TargetTermID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&relType, "type", "", "New relationship type")
	cmd.Flags().StringVar(&description, "description", "", "New description")

	return cmd
}
