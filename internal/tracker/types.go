// Package tracker mirrors issues from an upstream tracker into a
// destination table.
//
// A run fetches issues and existing rows, reconciles them into a Plan
// (rows to create, rows to update, rows left alone), then writes the plan in
// chunks sized to the destination's per-call limit. The direction is fixed:
// source to destination. Destination rows with no matching issue are never
// touched.
package tracker

import (
	"time"

	"github.com/issuesync/issuesync/internal/types"
)

// MaxBatchSize is the maximum number of records per destination write call.
// It is a limit of the destination API, not a tuning knob.
const MaxBatchSize = 10

// Op names a write path.
type Op string

const (
	// OpInsert creates rows for issues with no matching row.
	OpInsert Op = "insert"
	// OpUpdate patches rows whose tracked fields changed.
	OpUpdate Op = "update"
)

// UpdatePair is an issue paired with the row it will overwrite.
type UpdatePair struct {
	Issue types.Issue `json:"issue"`
	RowID string      `json:"row_id"`
	// Clear lists columns the projection omits but the row still holds a
	// value for. They are written as null.
	Clear []string `json:"clear,omitempty"`
}

// Plan is the outcome of reconciliation. Insert and Update are disjoint;
// issues whose projection matches their row appear in neither.
type Plan struct {
	Insert    []types.Issue `json:"insert"`
	Update    []UpdatePair  `json:"update"`
	Unchanged int           `json:"unchanged"`

	// UnkeyedRows are row IDs without an issue number. They are left alone.
	UnkeyedRows []string `json:"unkeyed_rows,omitempty"`

	// Malformed collects stored values of an unexpected type. The affected
	// rows are scheduled for update so the write replaces the bad value.
	Malformed []*MalformedFieldError `json:"-"`
}

// Empty reports whether the plan has nothing to write.
func (p *Plan) Empty() bool {
	return len(p.Insert) == 0 && len(p.Update) == 0
}

// SyncOptions configures a sync run.
type SyncOptions struct {
	// State filters issues: "open", "closed", or "all".
	State types.StateFilter
	// DryRun reconciles without writing.
	DryRun bool
	// Timeout bounds the whole run, fetches and writes included. Zero means
	// no deadline beyond the caller's context.
	Timeout time.Duration
}

// SyncResult is the complete result of a sync operation.
type SyncResult struct {
	Success  bool      `json:"success"`
	DryRun   bool      `json:"dry_run,omitempty"`
	Stats    SyncStats `json:"stats"`
	LastSync string    `json:"last_sync,omitempty"` // RFC3339 timestamp
	Error    string    `json:"error,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`

	// Plan is the reconciliation outcome, kept for dry-run rendering.
	Plan *Plan `json:"-"`
}
