// Package github reads issues from the GitHub REST API.
package github

import (
	gh "github.com/google/go-github/v72/github"

	"github.com/issuesync/issuesync/internal/types"
)

// IssueFromGitHub converts an API issue into the sync record.
func IssueFromGitHub(issue *gh.Issue) types.Issue {
	out := types.Issue{
		Number: issue.GetNumber(),
		Title:  issue.GetTitle(),
		Body:   issue.GetBody(),
		URL:    issue.GetHTMLURL(),
		State:  types.State(issue.GetState()),
		Labels: LabelNames(issue.Labels),
	}

	// Set assignee from GitHub user
	if issue.Assignee != nil {
		out.Assignee = issue.Assignee.GetLogin()
	}

	// Set timestamps
	if issue.CreatedAt != nil {
		out.CreatedAt = issue.CreatedAt.Time
	}
	if issue.UpdatedAt != nil {
		out.UpdatedAt = issue.UpdatedAt.Time
	}

	return out
}

// LabelNames extracts label names, preserving the API's order.
func LabelNames(labels []*gh.Label) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == nil {
			continue
		}
		names = append(names, l.GetName())
	}
	return names
}
