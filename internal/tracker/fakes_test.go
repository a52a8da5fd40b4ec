package tracker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/issuesync/issuesync/internal/types"
)

// fakeSource implements IssueSource over a fixed issue list.
type fakeSource struct {
	issues   []types.Issue
	err      error
	gotState types.StateFilter
}

func (s *fakeSource) Repository() string { return "octo/widgets" }

func (s *fakeSource) FetchIssues(_ context.Context, state types.StateFilter) ([]types.Issue, error) {
	s.gotState = state
	if s.err != nil {
		return nil, s.err
	}
	return s.issues, nil
}

// fakeStore is an in-memory RowStore. failCreate and failUpdate inject
// per-call errors.
type fakeStore struct {
	mu      sync.Mutex
	rows    []types.Row
	nextID  int
	listErr error

	failCreate func(chunk []types.Fields) error
	failUpdate func(chunk []types.Row) error

	createCalls [][]types.Fields
	updateCalls [][]types.Row

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

func (s *fakeStore) TableName() string { return "appTest/Issues" }

func (s *fakeStore) ListRecords(_ context.Context) ([]types.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]types.Row, len(s.rows))
	for i, r := range s.rows {
		out[i] = types.Row{ID: r.ID, Fields: copyFields(r.Fields)}
	}
	return out, nil
}

func (s *fakeStore) CreateRecords(_ context.Context, fields []types.Fields) ([]types.Row, error) {
	defer s.track()()
	if len(fields) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds limit", len(fields))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls = append(s.createCalls, fields)
	if s.failCreate != nil {
		if err := s.failCreate(fields); err != nil {
			return nil, err
		}
	}
	out := make([]types.Row, 0, len(fields))
	for _, f := range fields {
		s.nextID++
		row := types.Row{ID: fmt.Sprintf("rec%03d", s.nextID), Fields: storedFields(f)}
		s.rows = append(s.rows, row)
		out = append(out, row)
	}
	return out, nil
}

func (s *fakeStore) UpdateRecords(_ context.Context, rows []types.Row) ([]types.Row, error) {
	defer s.track()()
	if len(rows) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds limit", len(rows))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls = append(s.updateCalls, rows)
	if s.failUpdate != nil {
		if err := s.failUpdate(rows); err != nil {
			return nil, err
		}
	}
	out := make([]types.Row, 0, len(rows))
	for _, patch := range rows {
		for i := range s.rows {
			if s.rows[i].ID != patch.ID {
				continue
			}
			for k, v := range patch.Fields {
				if v == nil {
					delete(s.rows[i].Fields, k)
				} else {
					s.rows[i].Fields[k] = v
				}
			}
			out = append(out, s.rows[i])
		}
	}
	return out, nil
}

// track records concurrency; the returned func ends the call.
func (s *fakeStore) track() func() {
	n := s.inFlight.Add(1)
	for {
		cur := s.maxInFlight.Load()
		if n <= cur || s.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return func() { s.inFlight.Add(-1) }
}

// storedFields mimics the destination: numbers come back as float64 and
// empty strings are dropped.
func storedFields(f types.Fields) types.Fields {
	out := make(types.Fields, len(f))
	for k, v := range f {
		switch x := v.(type) {
		case int:
			out[k] = float64(x)
		case string:
			if x != "" {
				out[k] = x
			}
		case nil:
		default:
			out[k] = v
		}
	}
	return out
}

func copyFields(f types.Fields) types.Fields {
	out := make(types.Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// recordingReporter captures reporter calls.
type recordingReporter struct {
	mu       sync.Mutex
	messages []string
	warnings []string
	progress map[Op][]int
}

func (r *recordingReporter) Message(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, fmt.Sprintf(format, args...))
}

func (r *recordingReporter) Warning(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

func (r *recordingReporter) Progress(op Op, done, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress == nil {
		r.progress = make(map[Op][]int)
	}
	r.progress[op] = append(r.progress[op], done)
}

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newIssue(number int, title string) types.Issue {
	return types.Issue{
		Number:    number,
		Title:     title,
		Body:      fmt.Sprintf("Body of #%d", number),
		URL:       fmt.Sprintf("https://github.com/octo/widgets/issues/%d", number),
		State:     types.StateOpen,
		CreatedAt: baseTime,
		UpdatedAt: baseTime.Add(time.Hour),
	}
}

func issueRange(n int) []types.Issue {
	issues := make([]types.Issue, n)
	for i := range issues {
		issues[i] = newIssue(i+1, fmt.Sprintf("Issue %d", i+1))
	}
	return issues
}
