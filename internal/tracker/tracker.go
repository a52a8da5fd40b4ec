package tracker

import (
	"context"

	"github.com/issuesync/issuesync/internal/types"
)

// IssueSource lists issues from the upstream tracker. The GitHub client
// implements it.
type IssueSource interface {
	// Repository returns the "owner/name" identifier, used in messages.
	Repository() string

	// FetchIssues retrieves every issue matching the state filter.
	// Pull requests must already be excluded.
	FetchIssues(ctx context.Context, state types.StateFilter) ([]types.Issue, error)
}

// RowStore reads and writes rows of the destination table. The Airtable
// client implements it.
type RowStore interface {
	// TableName identifies the table in messages.
	TableName() string

	// ListRecords retrieves every row in the table.
	ListRecords(ctx context.Context) ([]types.Row, error)

	// CreateRecords inserts at most MaxBatchSize rows and returns the
	// rows as stored.
	CreateRecords(ctx context.Context, fields []types.Fields) ([]types.Row, error)

	// UpdateRecords patches at most MaxBatchSize rows. A nil field value
	// clears the column.
	UpdateRecords(ctx context.Context, rows []types.Row) ([]types.Row, error)
}

// Reporter receives progress output from a sync run. Implementations must
// be safe for concurrent use: Progress is called from the goroutines that
// write chunks.
type Reporter interface {
	Message(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Progress(op Op, done, total int)
}

// NopReporter discards all output.
type NopReporter struct{}

func (NopReporter) Message(string, ...interface{}) {}
func (NopReporter) Warning(string, ...interface{}) {}
func (NopReporter) Progress(Op, int, int)          {}
