package ui

import (
	"bytes"
	"testing"
)

func TestToPager_WritesDirectlyWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	if err := ToPager(&buf, "line1\nline2\n", PagerOptions{NoPager: true}); err != nil {
		t.Fatalf("ToPager() error = %v", err)
	}
	if got := buf.String(); got != "line1\nline2\n" {
		t.Errorf("ToPager() wrote %q", got)
	}
}

func TestShouldUsePager(t *testing.T) {
	t.Setenv("ISSUESYNC_NO_PAGER", "1")
	if shouldUsePager(PagerOptions{}) {
		t.Error("ISSUESYNC_NO_PAGER should disable the pager")
	}
}

func TestGetPagerCommand(t *testing.T) {
	t.Setenv("ISSUESYNC_PAGER", "")
	t.Setenv("PAGER", "more")
	if got := getPagerCommand(); got != "more" {
		t.Errorf("getPagerCommand() = %q, want more", got)
	}

	t.Setenv("ISSUESYNC_PAGER", "less -R")
	if got := getPagerCommand(); got != "less -R" {
		t.Errorf("getPagerCommand() = %q, want ISSUESYNC_PAGER to win", got)
	}

	t.Setenv("ISSUESYNC_PAGER", "")
	t.Setenv("PAGER", "")
	if got := getPagerCommand(); got != "less" {
		t.Errorf("getPagerCommand() = %q, want less", got)
	}
}

func TestContentHeight(t *testing.T) {
	tests := map[string]int{
		"":         0,
		"one":      1,
		"one\ntwo": 2,
	}
	for content, want := range tests {
		if got := contentHeight(content); got != want {
			t.Errorf("contentHeight(%q) = %d, want %d", content, got, want)
		}
	}
}
