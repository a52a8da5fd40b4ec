// Package types defines the records that flow through an issuesync run:
// issues read from GitHub, rows read from Airtable, and the flat field set
// an issue is projected into.
package types

import (
	"fmt"
	"time"
)

// Issue is one GitHub issue as fetched for a sync run. Pull requests never
// appear here; the source reader drops them.
type Issue struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	URL       string    `json:"url"`
	Labels    []string  `json:"labels,omitempty"`   // Order as returned by GitHub
	Assignee  string    `json:"assignee,omitempty"` // Login, empty when unassigned
	State     State     `json:"state"`
	Number    int       `json:"number"` // Repository-scoped, the join key
}

// HasAssignee reports whether the issue is assigned to anyone.
func (i *Issue) HasAssignee() bool {
	return i.Assignee != ""
}

// State is the lifecycle state of a single issue.
type State string

// Issue state constants
const (
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// IsValid checks if the state value is valid
func (s State) IsValid() bool {
	switch s {
	case StateOpen, StateClosed:
		return true
	}
	return false
}

// StateFilter selects which issues the source reader lists.
type StateFilter string

// State filter constants
const (
	FilterOpen   StateFilter = "open"
	FilterClosed StateFilter = "closed"
	FilterAll    StateFilter = "all"
)

// IsValid checks if the filter is one of open, closed or all.
func (f StateFilter) IsValid() bool {
	switch f {
	case FilterOpen, FilterClosed, FilterAll:
		return true
	}
	return false
}

// ParseStateFilter converts a user-supplied string into a StateFilter.
// An empty string selects FilterAll.
func ParseStateFilter(s string) (StateFilter, error) {
	if s == "" {
		return FilterAll, nil
	}
	f := StateFilter(s)
	if !f.IsValid() {
		return "", fmt.Errorf("invalid state %q (valid values: open, closed, all)", s)
	}
	return f, nil
}

// Row is an existing record in the destination table.
type Row struct {
	ID     string `json:"id"`
	Fields Fields `json:"fields"`
}

// Fields maps destination column names to values. Values read back from
// Airtable carry JSON decoding types: string, float64, bool, []any or
// map[string]any.
type Fields map[string]any

// Destination column names.
const (
	FieldCreatedAt   = "CreatedAt"
	FieldUpdatedAt   = "UpdatedAt"
	FieldIssueNumber = "IssueNumber"
	FieldName        = "Name"
	FieldDescription = "Description"
	FieldSourceURL   = "SourceURL"
	FieldLabels      = "Labels"
	FieldStatus      = "Status"
	FieldAssignedTo  = "AssignedTo"
)

// TrackedFields lists the columns compared when deciding whether a row
// needs an update. Timestamps are never compared.
var TrackedFields = []string{
	FieldIssueNumber,
	FieldName,
	FieldDescription,
	FieldSourceURL,
	FieldLabels,
	FieldStatus,
	FieldAssignedTo,
}
