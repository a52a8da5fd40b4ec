package tracker

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issuesync/issuesync/internal/types"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{0, nil},
		{1, []int{1}},
		{10, []int{10}},
		{11, []int{10, 1}},
		{23, []int{10, 10, 3}},
		{30, []int{10, 10, 10}},
	}
	for _, tt := range tests {
		items := make([]int, tt.n)
		for i := range items {
			items[i] = i
		}

		chunks := Chunk(items, MaxBatchSize)

		var sizes []int
		var flat []int
		for _, c := range chunks {
			sizes = append(sizes, len(c))
			flat = append(flat, c...)
		}
		assert.Equal(t, tt.want, sizes, "n=%d", tt.n)
		if tt.n > 0 {
			assert.Equal(t, items, flat, "chunks must preserve order")
		}
	}
}

func TestChunk_AppendDoesNotClobberNeighbour(t *testing.T) {
	chunks := Chunk([]int{1, 2, 3, 4}, 2)
	_ = append(chunks[0], 99)
	assert.Equal(t, []int{3, 4}, chunks[1])
}

func TestChunk_PanicsOnBadSize(t *testing.T) {
	assert.Panics(t, func() { Chunk([]int{1}, 0) })
}

func TestBatchWriter_Insert23(t *testing.T) {
	store := &fakeStore{}
	rep := &recordingReporter{}
	w := &BatchWriter{Store: store, Reporter: rep}

	res, err := w.Insert(context.Background(), issueRange(23))
	require.NoError(t, err)

	assert.Equal(t, 23, res.Total)
	assert.Equal(t, 23, res.Written)
	assert.Empty(t, res.FailedChunks())

	var sizes []int
	for _, call := range store.createCalls {
		sizes = append(sizes, len(call))
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))
	assert.Equal(t, []int{10, 10, 3}, sizes)

	require.Len(t, rep.progress[OpInsert], 3)
	assert.Contains(t, rep.progress[OpInsert], 23)
}

func TestBatchWriter_PartialFailure(t *testing.T) {
	boom := errors.New("INVALID_VALUE_FOR_COLUMN")
	store := &fakeStore{
		failCreate: func(chunk []types.Fields) error {
			// Fail the chunk that carries issue #11.
			for _, f := range chunk {
				if f[types.FieldIssueNumber] == 11 {
					return boom
				}
			}
			return nil
		},
	}
	w := &BatchWriter{Store: store}

	res, err := w.Insert(context.Background(), issueRange(23))
	require.Error(t, err)

	var writeErr *DestinationWriteError
	require.True(t, errors.As(err, &writeErr))
	assert.Equal(t, []int{1}, writeErr.FailedIndices())
	assert.Equal(t, 13, writeErr.Written)
	assert.Equal(t, 23, writeErr.Total)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 13, res.Written)
	assert.Equal(t, 10, res.FailedRecords())
	assert.Len(t, store.rows, 13, "other chunks must still be written")
}

func TestBatchWriter_ConcurrencyCap(t *testing.T) {
	store := &fakeStore{delay: 20 * time.Millisecond}
	w := &BatchWriter{Store: store, Concurrency: 2}

	res, err := w.Insert(context.Background(), issueRange(50))
	require.NoError(t, err)
	assert.Equal(t, 50, res.Written)
	assert.LessOrEqual(t, store.maxInFlight.Load(), int32(2))
}

func TestBatchWriter_ChunksRunConcurrently(t *testing.T) {
	store := &fakeStore{delay: 50 * time.Millisecond}
	w := &BatchWriter{Store: store}

	_, err := w.Insert(context.Background(), issueRange(30))
	require.NoError(t, err)
	assert.Equal(t, int32(3), store.maxInFlight.Load())
}

func TestBatchWriter_Empty(t *testing.T) {
	store := &fakeStore{}
	w := &BatchWriter{Store: store}

	res, err := w.Insert(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Total)

	res, err = w.Update(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.Empty(t, store.createCalls)
	assert.Empty(t, store.updateCalls)
}

func TestBatchWriter_UpdateSendsClearAsNull(t *testing.T) {
	issue := newIssue(4, "Unassigned now")
	store := &fakeStore{rows: []types.Row{{
		ID:     "rec4",
		Fields: types.Fields{types.FieldIssueNumber: float64(4), types.FieldAssignedTo: "@erin"},
	}}}
	w := &BatchWriter{Store: store}

	res, err := w.Update(context.Background(), []UpdatePair{{
		Issue: issue,
		RowID: "rec4",
		Clear: []string{types.FieldAssignedTo},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)

	require.Len(t, store.updateCalls, 1)
	sent := store.updateCalls[0][0]
	assert.Equal(t, "rec4", sent.ID)
	v, ok := sent.Fields[types.FieldAssignedTo]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.NotContains(t, store.rows[0].Fields, types.FieldAssignedTo)
}

func TestBatchWriter_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &fakeStore{}
	w := &BatchWriter{Store: store}

	res, err := w.Insert(ctx, issueRange(12))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Written)
	assert.Empty(t, store.createCalls)
}
