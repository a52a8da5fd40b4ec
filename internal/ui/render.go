package ui

import (
	"fmt"
	"strings"

	"github.com/issuesync/issuesync/internal/tracker"
)

// RenderPlan lists what a sync would write to table.
func RenderPlan(plan *tracker.Plan, table string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", RenderCategory("Plan"), RenderMuted("for "+table))
	b.WriteString(RenderSeparator() + "\n")

	if plan.Empty() {
		fmt.Fprintf(&b, "%s nothing to write (%d unchanged)\n", RenderPassIcon(), plan.Unchanged)
		return b.String()
	}

	if len(plan.Insert) > 0 {
		fmt.Fprintf(&b, "\n%s (%d)\n", RenderCategory("Insert"), len(plan.Insert))
		for _, issue := range plan.Insert {
			fmt.Fprintf(&b, "  %s %s %s\n",
				RenderPass(IconInsert),
				RenderAccent(fmt.Sprintf("#%d", issue.Number)),
				OneLine(issue.Title, DefaultTitleWidth))
		}
	}

	if len(plan.Update) > 0 {
		fmt.Fprintf(&b, "\n%s (%d)\n", RenderCategory("Update"), len(plan.Update))
		for _, u := range plan.Update {
			line := fmt.Sprintf("  %s %s %s %s",
				RenderAccent(IconUpdate),
				RenderAccent(fmt.Sprintf("#%d", u.Issue.Number)),
				OneLine(u.Issue.Title, DefaultTitleWidth),
				RenderMuted(u.RowID))
			if len(u.Clear) > 0 {
				line += RenderMuted(" clear " + strings.Join(u.Clear, ","))
			}
			b.WriteString(line + "\n")
		}
	}

	fmt.Fprintf(&b, "\n%s\n", RenderMuted(fmt.Sprintf("%d unchanged", plan.Unchanged)))
	return b.String()
}

// RenderResult summarizes a finished sync run.
func RenderResult(res *tracker.SyncResult) string {
	var b strings.Builder
	s := res.Stats

	status := RenderPassIcon()
	if !res.Success {
		status = RenderFailIcon()
	}
	fmt.Fprintf(&b, "%s fetched %d issue(s), %d row(s)\n", status, s.Fetched, s.Rows)
	fmt.Fprintf(&b, "  %s created %d\n", RenderPass(IconInsert), s.Created)
	fmt.Fprintf(&b, "  %s updated %d\n", RenderAccent(IconUpdate), s.Updated)
	fmt.Fprintf(&b, "  %s\n", RenderMuted(fmt.Sprintf("unchanged %d", s.Unchanged)))
	if s.Failed > 0 {
		fmt.Fprintf(&b, "  %s\n", RenderFail(fmt.Sprintf("failed %d", s.Failed)))
	}
	if res.Error != "" {
		fmt.Fprintf(&b, "%s %s\n", RenderFailIcon(), res.Error)
	}
	return b.String()
}
