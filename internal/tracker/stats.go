package tracker

// SyncStats tracks statistics for a sync run.
type SyncStats struct {
	Fetched   int `json:"fetched"`   // Issues read from the source
	Rows      int `json:"rows"`      // Rows read from the destination
	Created   int `json:"created"`   // Rows inserted
	Updated   int `json:"updated"`   // Rows patched
	Unchanged int `json:"unchanged"` // Matched rows with no tracked change
	Failed    int `json:"failed"`    // Records in chunks that failed to write
}

// ChunkResult is the outcome of one destination write call.
type ChunkResult struct {
	Index   int   `json:"index"`
	Size    int   `json:"size"`
	Written int   `json:"written"`
	Err     error `json:"-"`
}

// Failed reports whether the chunk's call returned an error.
func (c ChunkResult) Failed() bool {
	return c.Err != nil
}

// WriteResult aggregates the chunks of one Insert or Update call.
type WriteResult struct {
	Op      Op            `json:"op"`
	Total   int           `json:"total"`
	Written int           `json:"written"`
	Chunks  []ChunkResult `json:"chunks"`
}

// FailedChunks returns the chunks whose call returned an error.
func (r WriteResult) FailedChunks() []ChunkResult {
	var failed []ChunkResult
	for _, c := range r.Chunks {
		if c.Failed() {
			failed = append(failed, c)
		}
	}
	return failed
}

// FailedRecords counts records in failed chunks.
func (r WriteResult) FailedRecords() int {
	n := 0
	for _, c := range r.FailedChunks() {
		n += c.Size
	}
	return n
}
