package tracker

import (
	"strings"
	"time"

	"github.com/issuesync/issuesync/internal/types"
)

// Project maps an issue onto the destination's flat column set.
//
// Labels are joined with commas, so a label containing a comma cannot be
// told apart from two labels once stored. AssignedTo is omitted entirely for
// unassigned issues rather than set to an empty string.
func Project(issue types.Issue) types.Fields {
	fields := types.Fields{
		types.FieldCreatedAt:   formatTime(issue.CreatedAt),
		types.FieldUpdatedAt:   formatTime(issue.UpdatedAt),
		types.FieldIssueNumber: issue.Number,
		types.FieldName:        issue.Title,
		types.FieldDescription: issue.Body,
		types.FieldSourceURL:   issue.URL,
		types.FieldLabels:      strings.Join(issue.Labels, ","),
		types.FieldStatus:      string(issue.State),
	}
	if issue.HasAssignee() {
		fields[types.FieldAssignedTo] = "@" + issue.Assignee
	}
	return fields
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
