package tracker

import (
	"fmt"
	"sort"
	"strings"
)

// SourceFetchError is returned when listing issues fails. The run stops:
// an empty or partial issue list must never be reconciled as if complete.
type SourceFetchError struct {
	Repo string
	Err  error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("fetching issues from %s: %v", e.Repo, e.Err)
}

func (e *SourceFetchError) Unwrap() error { return e.Err }

// DestinationFetchError is returned when listing destination rows fails.
type DestinationFetchError struct {
	Table string
	Err   error
}

func (e *DestinationFetchError) Error() string {
	return fmt.Sprintf("listing rows of %s: %v", e.Table, e.Err)
}

func (e *DestinationFetchError) Unwrap() error { return e.Err }

// DestinationWriteError reports a write path where at least one chunk
// failed. Records in the other chunks were written.
type DestinationWriteError struct {
	Op      Op
	Total   int           // Records submitted
	Written int           // Records the destination accepted
	Failed  []ChunkResult // Chunks whose call returned an error
}

func (e *DestinationWriteError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d chunk(s) failed, %d of %d records written",
		e.Op, len(e.Failed), e.Written, e.Total)
	for _, c := range e.Failed {
		fmt.Fprintf(&b, "; chunk %d (%d records): %v", c.Index, c.Size, c.Err)
	}
	return b.String()
}

// Unwrap exposes the per-chunk errors to errors.Is and errors.As.
func (e *DestinationWriteError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, c := range e.Failed {
		errs = append(errs, c.Err)
	}
	return errs
}

// FailedIndices returns the indices of the failed chunks in ascending order.
func (e *DestinationWriteError) FailedIndices() []int {
	idx := make([]int, len(e.Failed))
	for i, c := range e.Failed {
		idx[i] = c.Index
	}
	sort.Ints(idx)
	return idx
}

// DuplicateKey is one issue number held by more than one row.
type DuplicateKey struct {
	Number int
	RowIDs []string
}

// DuplicateKeyError is returned when the destination holds several rows for
// the same issue number. Matching would be ambiguous, so nothing is written.
type DuplicateKeyError struct {
	Keys []DuplicateKey // Sorted by issue number
}

func (e *DuplicateKeyError) Error() string {
	if len(e.Keys) == 0 {
		return "duplicate issue numbers in destination"
	}
	first := e.Keys[0]
	msg := fmt.Sprintf("destination has %d rows for issue #%d (%s)",
		len(first.RowIDs), first.Number, strings.Join(first.RowIDs, ", "))
	if len(e.Keys) > 1 {
		msg += fmt.Sprintf(" and %d more duplicated issue number(s)", len(e.Keys)-1)
	}
	return msg
}

// MalformedRowError is returned when a row's join key cannot be read as an
// issue number.
type MalformedRowError struct {
	RowID string
	Field string
	Value interface{}
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("row %s: %s has unexpected value %#v (%T)", e.RowID, e.Field, e.Value, e.Value)
}

// MalformedFieldError describes a stored value whose type the comparison
// does not understand. It is a warning: the row is rewritten.
type MalformedFieldError struct {
	RowID string
	Field string
	Value interface{}
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("row %s: field %s holds unexpected %T value; it will be overwritten", e.RowID, e.Field, e.Value)
}
