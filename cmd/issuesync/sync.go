package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/issuesync/issuesync/internal/config"
	"github.com/issuesync/issuesync/internal/tracker"
	"github.com/issuesync/issuesync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror issues into the table",
	Long: `Fetch every issue matching --state and every row of the table, then
create rows for new issues and update rows whose tracked fields changed.

Inserts and updates are written concurrently, ten records per call.
Rows without a matching issue are never modified or deleted.

Examples:
  issuesync sync --repo octo/hello --base appXXXX --table Issues
  issuesync sync --dry-run
  issuesync sync --state open --json`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

// syncOutput is the --json shape of a sync run.
type syncOutput struct {
	*tracker.SyncResult
	Plan *tracker.Plan `json:"plan,omitempty"`
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	reporter := ui.NewTerminalReporter(out, cmd.ErrOrStderr(),
		quietFlag || jsonOutput, !jsonOutput && ui.IsTerminal())

	engine, err := newEngine(cfg, reporter)
	if err != nil {
		return err
	}

	result, syncErr := engine.Sync(rootCtx, tracker.SyncOptions{
		State:   cfg.GitHub.State,
		DryRun:  cfg.Sync.DryRun,
		Timeout: cfg.Sync.Timeout,
	})
	reporter.Finish()

	switch {
	case jsonOutput:
		o := syncOutput{SyncResult: result}
		if result.DryRun {
			o.Plan = result.Plan
		}
		if err := outputJSON(out, o); err != nil {
			return err
		}
	case result.DryRun && result.Plan != nil:
		fmt.Fprint(out, ui.RenderPlan(result.Plan, cfg.Airtable.BaseID+"/"+cfg.Airtable.Table))
	case !quietFlag || syncErr != nil:
		fmt.Fprint(out, ui.RenderResult(result))
	}

	if syncErr != nil {
		return &reportedError{err: syncErr}
	}
	return nil
}

// addTargetFlags registers the flags shared by commands that read both
// sides of a sync.
func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("repo", "", "GitHub repository as owner/name (env GITHUB_REPO)")
	cmd.Flags().String("state", "", "Issue state filter: open, closed, all (default all)")
	cmd.Flags().String("base", "", "Airtable base ID (env AIRTABLE_BASE_ID)")
	cmd.Flags().String("table", "", "Airtable table name or ID (env AIRTABLE_TABLE)")
	cmd.Flags().Duration("timeout", 0, "Deadline for the whole run (default 5m)")
}

// withTimeout bounds ctx by d when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func init() {
	addTargetFlags(syncCmd)
	syncCmd.Flags().Int("concurrency", 0, "Maximum concurrent write calls per path (0 = one per chunk)")
	syncCmd.Flags().Bool("dry-run", false, "Reconcile and show the plan without writing")
	rootCmd.AddCommand(syncCmd)
}
