package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ersonp/termgraph/internal/application/handlers"
)

type termAddFlags struct {
	name       string
	contextID  string
	definition string
	status     string
	essential  bool
}

func newTermsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "terms",
		Short: "Manage glossary terms",
	}

	cmd.AddCommand(
		newTermsAddCmd(),
		newTermsListCmd(),
		newTermsDeleteCmd(),
	)

	return cmd
}

func newTermsAddCmd() *cobra.Command {
	var flags termAddFlags

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Create or update a term",
		Long: `Creates a term, or updates it if the ID already exists.

Examples:
  termgraph -g sales terms add order --name Order --context sales --essential
  termgraph -g sales terms add invoice --status active --definition "A bill for an order"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTermsAdd(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.name, "name", "", "Display name (defaults to the ID)")
	cmd.Flags().StringVar(&flags.contextID, "context", "", "Bounded context the term belongs to")
	cmd.Flags().StringVar(&flags.definition, "definition", "", "Term definition")
	cmd.Flags().StringVar(&flags.status, "status", "", "Status: draft, active, deprecated, archived")
	cmd.Flags().BoolVar(&flags.essential, "essential", false, "Required for onboarding")

	return cmd
}

func runTermsAdd(cmd *cobra.Command, id string, flags termAddFlags) error {
	ctx := cmd.Context()

	name := flags.name
	if name == "" {
		name = id
	}

	return withDeps(ctx, func(deps *Deps) error {
		term, err := deps.Terms.HandleSave(ctx, handlers.SaveTermRequest{
			ID:         id,
			Name:       name,
			ContextID:  flags.contextID,
			Definition: flags.definition,
			Status:     flags.status,
			Essential:  flags.essential,
		})
		if err != nil {
			return fmt.Errorf("saving term: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Saved term: %s (%s)\n", term.ID, term.Status)
		return nil
	})
}

func newTermsListCmd() *cobra.Command {
	var contextID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List terms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(deps *Deps) error {
				result, err := deps.Terms.HandleList(ctx, contextID)
				if err != nil {
					return fmt.Errorf("listing terms: %w", err)
				}
				printTerms(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&contextID, "context", "", "Only terms of this bounded context")

	return cmd
}

func printTerms(out io.Writer, result *handlers.TermListResult) {
	if result.Total == 0 {
		fmt.Fprintln(out, "No terms found.")
		return
	}

	fmt.Fprintf(out, "%-24s %-24s %-16s %-11s %s\n", "ID", "NAME", "CONTEXT", "STATUS", "ESSENTIAL")
	fmt.Fprintf(out, "%-24s %-24s %-16s %-11s %s\n", "--", "----", "-------", "------", "---------")

	for _, t := range result.Terms {
		essential := ""
		if t.Essential {
			essential = "yes"
		}
		fmt.Fprintf(out, "%-24s %-24s %-16s %-11s %s\n", t.ID, t.Name, t.ContextID, t.Status, essential)
	}

	fmt.Fprintf(out, "\nTotal: %d\n", result.Total)
}

func newTermsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a term and every relationship touching it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(deps *Deps) error {
				if err := deps.Terms.HandleDelete(ctx, args[0]); err != nil {
					return fmt.Errorf("deleting term: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted term: %s\n", args[0])
				return nil
			})
		},
	}
}
