// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"pipstage-cli/internal/provision"
)

var (
	planRecipe  string
	planContext string
	planTag     string
	planExplain bool

	planCmd = &cobra.Command{
		Use:   "plan",
		Short: "Show the build step sequence without executing it",
		Long: `Compile the stagefile into its build plan and print the step sequence.

Nothing is pulled, fetched, or executed. Use --explain for a rendered
markdown view of every step with its failure classification.`,
		RunE: runPlan,
	}
)

func init() {
	planCmd.Flags().StringVar(&planRecipe, "recipe", "", "stagefile path (default: stagefile.cue in the context, else the built-in recipe)")
	planCmd.Flags().StringVarP(&planContext, "context", "c", ".", "build context directory")
	planCmd.Flags().StringVarP(&planTag, "tag", "t", "", "image tag the plan would apply")
	planCmd.Flags().BoolVar(&planExplain, "explain", false, "render the plan as styled markdown")
}

func runPlan(cmd *cobra.Command, _ []string) error {
	recipe, err := loadRecipe(planRecipe, planContext)
	if err != nil {
		printGuidance(cmd.ErrOrStderr(), recipeIssueId(err))
		return err
	}

	plan, err := provision.Compile(recipe, provision.BuildArgs{
		Tag:        planTag,
		ContextDir: planContext,
	})
	if err != nil {
		return fmt.Errorf("compiling build plan: %w", err)
	}

	markdown := plan.Describe()

	if planExplain {
		rendered, err := glamour.Render(markdown, "dark")
		if err != nil {
			return fmt.Errorf("rendering plan: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), markdown)
	return nil
}
