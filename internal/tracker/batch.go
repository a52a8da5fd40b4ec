package tracker

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/issuesync/issuesync/internal/types"
)

// Chunk splits items into consecutive slices of at most size elements.
// Every chunk but the last is full. Chunk returns nil for empty input.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		panic("tracker: chunk size must be positive")
	}
	if len(items) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// BatchWriter writes projected issues to a RowStore in chunks of
// MaxBatchSize. Chunks are sent concurrently; a failed chunk does not stop
// the others and is not retried here (the store retries transient errors).
type BatchWriter struct {
	Store    RowStore
	Reporter Reporter
	// Concurrency caps in-flight chunk calls. Zero means one call per chunk.
	Concurrency int
}

// Insert creates a row for each issue.
func (w *BatchWriter) Insert(ctx context.Context, issues []types.Issue) (WriteResult, error) {
	records := make([]types.Fields, len(issues))
	for i, issue := range issues {
		records[i] = Project(issue)
	}
	return writeChunks(ctx, w, OpInsert, Chunk(records, MaxBatchSize),
		func(ctx context.Context, chunk []types.Fields) ([]types.Row, error) {
			return w.Store.CreateRecords(ctx, chunk)
		})
}

// Update overwrites each paired row with the issue's projection. Columns in
// the pair's Clear list are written as null.
func (w *BatchWriter) Update(ctx context.Context, pairs []UpdatePair) (WriteResult, error) {
	rows := make([]types.Row, len(pairs))
	for i, p := range pairs {
		fields := Project(p.Issue)
		for _, f := range p.Clear {
			fields[f] = nil
		}
		rows[i] = types.Row{ID: p.RowID, Fields: fields}
	}
	return writeChunks(ctx, w, OpUpdate, Chunk(rows, MaxBatchSize),
		func(ctx context.Context, chunk []types.Row) ([]types.Row, error) {
			return w.Store.UpdateRecords(ctx, chunk)
		})
}

func (w *BatchWriter) reporter() Reporter {
	if w.Reporter == nil {
		return NopReporter{}
	}
	return w.Reporter
}

// writeChunks runs call once per chunk and collects per-chunk outcomes.
// Written counts the records the store echoed back, so a partial
// acknowledgement is reported as such.
func writeChunks[T any](
	ctx context.Context,
	w *BatchWriter,
	op Op,
	chunks [][]T,
	call func(context.Context, []T) ([]types.Row, error),
) (WriteResult, error) {
	result := WriteResult{Op: op, Chunks: make([]ChunkResult, len(chunks))}
	for _, c := range chunks {
		result.Total += len(c)
	}
	if len(chunks) == 0 {
		return result, nil
	}

	rep := w.reporter()
	var done atomic.Int64

	// Plain Group: one chunk's failure must not cancel its siblings.
	var g errgroup.Group
	if w.Concurrency > 0 {
		g.SetLimit(w.Concurrency)
	}
	for i, chunk := range chunks {
		g.Go(func() error {
			res := ChunkResult{Index: i, Size: len(chunk)}
			if err := ctx.Err(); err != nil {
				res.Err = err
			} else {
				rows, err := call(ctx, chunk)
				res.Written = len(rows)
				res.Err = err
			}
			result.Chunks[i] = res
			rep.Progress(op, int(done.Add(int64(len(chunk)))), result.Total)
			return nil
		})
	}
	_ = g.Wait()

	for _, c := range result.Chunks {
		result.Written += c.Written
	}
	if failed := result.FailedChunks(); len(failed) > 0 {
		return result, &DestinationWriteError{
			Op:      op,
			Total:   result.Total,
			Written: result.Written,
			Failed:  failed,
		}
	}
	return result, nil
}
