package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/issuesync/issuesync/internal/debug"
	"github.com/issuesync/issuesync/internal/types"
)

// Engine runs one-way syncs from an IssueSource into a RowStore.
// It holds no state between runs: every Sync starts from a fresh fetch of
// both sides.
type Engine struct {
	Source   IssueSource
	Store    RowStore
	Reporter Reporter

	// Concurrency caps in-flight write calls per path. Zero is unbounded.
	Concurrency int

	// now is replaced in tests.
	now func() time.Time
}

// NewEngine creates a sync engine for the given source and destination.
func NewEngine(source IssueSource, store RowStore, reporter Reporter) *Engine {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Engine{
		Source:   source,
		Store:    store,
		Reporter: reporter,
		now:      time.Now,
	}
}

// Plan fetches both sides and reconciles them without writing.
func (e *Engine) Plan(ctx context.Context, state types.StateFilter) (*Plan, SyncStats, error) {
	var stats SyncStats

	issues, rows, err := e.fetch(ctx, state)
	if err != nil {
		return nil, stats, err
	}
	stats.Fetched = len(issues)
	stats.Rows = len(rows)

	plan, err := Reconcile(issues, rows)
	if err != nil {
		return nil, stats, err
	}
	stats.Unchanged = plan.Unchanged

	e.log().Debug("reconciled",
		"insert", len(plan.Insert),
		"update", len(plan.Update),
		"unchanged", plan.Unchanged,
		"unkeyed", len(plan.UnkeyedRows))
	return plan, stats, nil
}

// Sync performs a complete run: fetch, reconcile, then write inserts and
// updates concurrently. A failed write path does not stop the other one;
// both outcomes are counted and their errors joined.
func (e *Engine) Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	result := &SyncResult{Success: true, DryRun: opts.DryRun}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	plan, stats, err := e.Plan(ctx, opts.State)
	result.Stats = stats
	if err != nil {
		return e.fail(result, err)
	}
	result.Plan = plan

	for _, m := range plan.Malformed {
		e.warn(result, "%s", m.Error())
	}
	if n := len(plan.UnkeyedRows); n > 0 {
		e.warn(result, "%d row(s) in %s have no issue number and were left alone", n, e.Store.TableName())
	}

	if opts.DryRun {
		e.msg("Dry run: would create %d and update %d row(s) in %s (%d unchanged)",
			len(plan.Insert), len(plan.Update), e.Store.TableName(), plan.Unchanged)
		return result, nil
	}
	if plan.Empty() {
		e.msg("%s is up to date (%d row(s) unchanged)", e.Store.TableName(), plan.Unchanged)
		result.LastSync = e.clock().UTC().Format(time.RFC3339)
		return result, nil
	}

	writer := &BatchWriter{Store: e.Store, Reporter: e.reporter(), Concurrency: e.Concurrency}

	var (
		inserted, updated    WriteResult
		insertErr, updateErr error
		g                    errgroup.Group
	)
	g.Go(func() error {
		inserted, insertErr = writer.Insert(ctx, plan.Insert)
		return nil
	})
	g.Go(func() error {
		updated, updateErr = writer.Update(ctx, plan.Update)
		return nil
	})
	_ = g.Wait()

	result.Stats.Created = inserted.Written
	result.Stats.Updated = updated.Written
	result.Stats.Failed = inserted.FailedRecords() + updated.FailedRecords()

	e.log().Info("sync written",
		"created", result.Stats.Created,
		"updated", result.Stats.Updated,
		"failed", result.Stats.Failed)

	if err := errors.Join(insertErr, updateErr); err != nil {
		return e.fail(result, err)
	}

	e.msg("Created %d, updated %d row(s) in %s (%d unchanged)",
		result.Stats.Created, result.Stats.Updated, e.Store.TableName(), result.Stats.Unchanged)
	result.LastSync = e.clock().UTC().Format(time.RFC3339)
	return result, nil
}

// fetch lists issues and rows concurrently. Either failure aborts the run;
// the sibling fetch is cancelled.
func (e *Engine) fetch(ctx context.Context, state types.StateFilter) ([]types.Issue, []types.Row, error) {
	var (
		issues []types.Issue
		rows   []types.Row
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		issues, err = e.Source.FetchIssues(gctx, state)
		if err != nil {
			return &SourceFetchError{Repo: e.Source.Repository(), Err: err}
		}
		e.log().Debug("fetched issues", "repo", e.Source.Repository(), "count", len(issues))
		return nil
	})
	g.Go(func() error {
		var err error
		rows, err = e.Store.ListRecords(gctx)
		if err != nil {
			return &DestinationFetchError{Table: e.Store.TableName(), Err: err}
		}
		e.log().Debug("listed rows", "table", e.Store.TableName(), "count", len(rows))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return issues, rows, nil
}

func (e *Engine) fail(result *SyncResult, err error) (*SyncResult, error) {
	result.Success = false
	result.Error = err.Error()
	e.log().Error("sync failed", "error", err)
	return result, err
}

func (e *Engine) clock() time.Time {
	if e.now == nil {
		return time.Now()
	}
	return e.now()
}

func (e *Engine) log() *slog.Logger {
	return debug.Logger().With("component", "tracker")
}

func (e *Engine) reporter() Reporter {
	if e.Reporter == nil {
		return NopReporter{}
	}
	return e.Reporter
}

func (e *Engine) msg(format string, args ...interface{}) {
	e.reporter().Message(format, args...)
}

func (e *Engine) warn(result *SyncResult, format string, args ...interface{}) {
	w := fmt.Sprintf(format, args...)
	result.Warnings = append(result.Warnings, w)
	e.reporter().Warning("%s", w)
}
