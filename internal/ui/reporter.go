package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/issuesync/issuesync/internal/tracker"
)

// TerminalReporter renders sync progress. It is safe for concurrent use.
//
// On a terminal, progress for all write paths shares one status line that
// is rewritten in place. Elsewhere a line is printed when a path finishes.
// Quiet mode suppresses messages and progress; warnings are always shown.
type TerminalReporter struct {
	mu       sync.Mutex
	out      io.Writer
	errOut   io.Writer
	quiet    bool
	live     bool
	pending  bool // a live status line is on screen
	progress map[tracker.Op][2]int
}

// NewTerminalReporter writes messages and progress to out and warnings to
// errOut. live enables in-place status line updates.
func NewTerminalReporter(out, errOut io.Writer, quiet, live bool) *TerminalReporter {
	return &TerminalReporter{
		out:      out,
		errOut:   errOut,
		quiet:    quiet,
		live:     live,
		progress: make(map[tracker.Op][2]int),
	}
}

func (r *TerminalReporter) Message(format string, args ...interface{}) {
	if r.quiet {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLine()
	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *TerminalReporter) Warning(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLine()
	fmt.Fprintf(r.errOut, "%s %s\n", RenderWarnIcon(), fmt.Sprintf(format, args...))
}

func (r *TerminalReporter) Progress(op tracker.Op, done, total int) {
	if r.quiet {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	// Chunks finish out of order; never move backwards.
	if prev := r.progress[op]; done < prev[0] {
		done = prev[0]
	}
	r.progress[op] = [2]int{done, total}

	if r.live {
		fmt.Fprintf(r.out, "\r\033[K%s", r.statusLine())
		r.pending = true
		return
	}
	if done == total {
		fmt.Fprintf(r.out, "%s %s %d/%d\n", RenderMuted(string(op)), progressIcon(op), done, total)
	}
}

// Finish ends a pending live status line. Call it once writes are done.
func (r *TerminalReporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending {
		fmt.Fprintln(r.out)
		r.pending = false
	}
}

func (r *TerminalReporter) clearLine() {
	if r.pending {
		fmt.Fprint(r.out, "\r\033[K")
		r.pending = false
	}
}

func (r *TerminalReporter) statusLine() string {
	var parts []string
	for _, op := range []tracker.Op{tracker.OpInsert, tracker.OpUpdate} {
		p, ok := r.progress[op]
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %d/%d", op, p[0], p[1]))
	}
	return RenderMuted(strings.Join(parts, "  ·  "))
}

func progressIcon(op tracker.Op) string {
	if op == tracker.OpInsert {
		return RenderPass(IconInsert)
	}
	return RenderAccent(IconUpdate)
}
