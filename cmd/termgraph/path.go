package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/termgraph/internal/application/handlers"
	"github.com/ersonp/termgraph/internal/domain/entities"
)

func newPathCmd() *cobra.Command {
	var (
		userID string
		format string
	)

	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show a user's learning path over the essential terms",
		Long: `Orders the essential terms so that every term comes after the terms it
depends on, and marks the ones the user has already learned.

Examples:
  termgraph -g sales path --user alice
  termgraph -g sales path next --user alice --limit 3
  termgraph -g sales path can-learn invoice --user alice
  termgraph -g sales path learned order --user alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if !slices.Contains(pathFormats, format) {
				return fmt.Errorf("invalid format: %s (valid: %s)", format, strings.Join(pathFormats, ", "))
			}

			return withDeps(ctx, func(deps *Deps) error {
				result, err := deps.Onboarding.HandleLearningPath(ctx, userID)
				if err != nil {
					return fmt.Errorf("building learning path: %w", err)
				}

				out := cmd.OutOrStdout()
				if format == formatJSON {
					return printJSON(out, result)
				}
				printLearningPath(out, result)
				return nil
			})
		},
	}

	cmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "User whose progress is used (required)")
	_ = cmd.MarkPersistentFlagRequired("user")
	cmd.Flags().StringVar(&format, "format", formatList, "Output format: list, json")

	cmd.AddCommand(
		newPathNextCmd(&userID),
		newPathCanLearnCmd(&userID),
		newPathLearnedCmd(&userID),
	)

	return cmd
}

func printLearningPath(out io.Writer, result *handlers.LearningPathResult) {
	if result.Total == 0 {
		fmt.Fprintln(out, "No essential terms found.")
		return
	}

	fmt.Fprintf(out, "Learning path for %s (%d/%d learned):\n", result.UserID, result.Learned, result.Total)
	printPathEntries(out, result.Entries)
}

func printPathEntries(out io.Writer, entries []entities.LearningPathEntry) {
	for _, e := range entries {
		mark := "[ ]"
		if e.IsLearned {
			mark = "[x]"
		}

		line := fmt.Sprintf("%3d. %s %s", e.Order, mark, e.TermID)
		if len(e.Dependencies) > 0 {
			line += " (after: " + strings.Join(e.Dependencies, ", ") + ")"
		}
		fmt.Fprintln(out, line)
	}
}

func newPathNextCmd(userID *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Recommend the next terms to learn",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(deps *Deps) error {
				entries, err := deps.Onboarding.HandleRecommendations(ctx, *userID, limit)
				if err != nil {
					return fmt.Errorf("recommending terms: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Nothing left to learn right now.")
					return nil
				}
				printPathEntries(out, entries)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultRecommendLimit, "Maximum number of recommendations (negative for all)")

	return cmd
}

func newPathCanLearnCmd(userID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "can-learn <term-id>",
		Short: "Check whether a user has learned every dependency of a term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			termID := args[0]

			return withDeps(ctx, func(deps *Deps) error {
				ok, err := deps.Onboarding.HandleCanLearn(ctx, *userID, termID)
				if err != nil {
					return fmt.Errorf("checking term: %w", err)
				}

				out := cmd.OutOrStdout()
				if ok {
					fmt.Fprintf(out, "%s can learn %s\n", *userID, termID)
					return nil
				}

				missing, err := deps.Onboarding.HandleMissingDependencies(ctx, *userID, termID)
				if err != nil {
					return fmt.Errorf("listing missing dependencies: %w", err)
				}
				fmt.Fprintf(out, "%s cannot learn %s yet (missing: %s)\n", *userID, termID, strings.Join(missing, ", "))
				return nil
			})
		},
	}
}

func newPathLearnedCmd(userID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "learned <term-id>",
		Short: "Record that a user learned a term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			termID := args[0]

			return withDeps(ctx, func(deps *Deps) error {
				if err := deps.Terms.HandleMarkLearned(ctx, *userID, termID); err != nil {
					return fmt.Errorf("recording progress: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as learned by %s\n", termID, *userID)
				return nil
			})
		},
	}
}
