package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/issuesync/issuesync/internal/config"
	"github.com/issuesync/issuesync/internal/tracker"
	"github.com/issuesync/issuesync/internal/ui"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what a sync would write",
	Long: `Fetch issues and rows, reconcile them, and list the rows a sync would
create or update. Nothing is written.`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

// planOutput is the --json shape of the plan command.
type planOutput struct {
	Table string            `json:"table"`
	Stats tracker.SyncStats `json:"stats"`
	Plan  *tracker.Plan     `json:"plan"`
}

func runPlan(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	engine, err := newEngine(cfg, tracker.NopReporter{})
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(rootCtx, cfg.Sync.Timeout)
	defer cancel()

	plan, stats, err := engine.Plan(ctx, cfg.GitHub.State)
	if err != nil {
		return err
	}

	table := cfg.Airtable.BaseID + "/" + cfg.Airtable.Table
	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), planOutput{Table: table, Stats: stats, Plan: plan})
	}

	for _, m := range plan.Malformed {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", ui.RenderWarnIcon(), m.Error())
	}

	noPager, _ := cmd.Flags().GetBool("no-pager")
	return ui.ToPager(cmd.OutOrStdout(), ui.RenderPlan(plan, table), ui.PagerOptions{NoPager: noPager})
}

func init() {
	addTargetFlags(planCmd)
	planCmd.Flags().Bool("no-pager", false, "Print directly instead of using a pager")
	rootCmd.AddCommand(planCmd)
}
