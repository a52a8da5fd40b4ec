// Package airtable provides a client for the Airtable REST API.
//
// Only the calls a one-way issue sync needs are implemented: listing every
// record of a table, and batched create/update with typecast enabled so
// loosely typed values (a comma-joined label string, a numeric issue number)
// are coerced to each column's declared type.
package airtable

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/issuesync/issuesync/internal/types"
)

// API configuration constants.
const (
	// DefaultAPIEndpoint is the Airtable REST API base URL.
	DefaultAPIEndpoint = "https://api.airtable.com/v0"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the maximum number of retries for rate-limited requests.
	MaxRetries = 3

	// RetryDelay is the base delay between retries (exponential backoff).
	// Airtable asks clients to wait 30 seconds after a 429; the backoff
	// reaches that on the later attempts.
	RetryDelay = 2 * time.Second

	// MaxPageSize is the maximum number of records returned per list call.
	MaxPageSize = 100

	// MaxRecordsPerRequest is the maximum number of records Airtable
	// accepts in one create or update call.
	MaxRecordsPerRequest = 10

	// MaxPages is the maximum number of pages to fetch before stopping.
	MaxPages = 1000
)

// ErrBatchTooLarge is returned when a write exceeds MaxRecordsPerRequest.
var ErrBatchTooLarge = fmt.Errorf("batch exceeds %d records", MaxRecordsPerRequest)

// Client provides methods to interact with one Airtable table.
type Client struct {
	APIKey     string       // Personal access token
	BaseID     string       // Base identifier (app...)
	Table      string       // Table name or identifier (tbl...)
	BaseURL    string       // API base URL (default: https://api.airtable.com/v0)
	HTTPClient *http.Client // Optional custom HTTP client

	retryDelay time.Duration
}

// Record is the wire form of one table row.
type Record struct {
	ID          string       `json:"id,omitempty"`
	CreatedTime string       `json:"createdTime,omitempty"`
	Fields      types.Fields `json:"fields"`
}

// listResponse is the body returned by the list records endpoint.
type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

// writeRequest is the body of a batched create or update call.
type writeRequest struct {
	Records  []Record `json:"records"`
	Typecast bool     `json:"typecast"`
}

// writeResponse is the body returned by create and update calls.
type writeResponse struct {
	Records []Record `json:"records"`
}

// APIError is a non-2xx response from Airtable.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("airtable API error: %s: %s (status %d)", e.Type, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("airtable API error: %s (status %d)", e.Type, e.StatusCode)
}

// IsNotFound reports whether err is a 404 from Airtable (unknown base or table).
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// toRow converts a wire record into the sync row type.
func (r Record) toRow() types.Row {
	fields := r.Fields
	if fields == nil {
		fields = types.Fields{}
	}
	return types.Row{ID: r.ID, Fields: fields}
}

func toRows(records []Record) []types.Row {
	rows := make([]types.Row, len(records))
	for i, r := range records {
		rows[i] = r.toRow()
	}
	return rows
}
