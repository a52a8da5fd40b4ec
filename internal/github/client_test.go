// Package github reads issues from the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/issuesync/issuesync/internal/types"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient("test-token", "owner", "repo").WithBaseURL(serverURL)
	if err != nil {
		t.Fatalf("WithBaseURL() error = %v", err)
	}
	client.retryDelay = time.Millisecond
	return client
}

func writeIssues(w http.ResponseWriter, issues []map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(issues)
}

// TestNewClient verifies the constructor creates a properly configured client.
func TestNewClient(t *testing.T) {
	client := NewClient("test-token", "owner", "repo")

	if client.Owner != "owner" {
		t.Errorf("Owner = %q, want %q", client.Owner, "owner")
	}
	if client.Repo != "repo" {
		t.Errorf("Repo = %q, want %q", client.Repo, "repo")
	}
	if client.Repository() != "owner/repo" {
		t.Errorf("Repository() = %q, want %q", client.Repository(), "owner/repo")
	}
	if client.httpClient.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", client.httpClient.Timeout, DefaultTimeout)
	}
}

// TestClientWithBaseURL verifies custom base URL setting.
func TestClientWithBaseURL(t *testing.T) {
	client, err := NewClient("token", "owner", "repo").WithBaseURL("https://github.example.com/api/v3")
	if err != nil {
		t.Fatalf("WithBaseURL() error = %v", err)
	}

	if got := client.api.BaseURL.String(); got != "https://github.example.com/api/v3/" {
		t.Errorf("BaseURL = %q, want trailing slash added", got)
	}
	if client.Owner != "owner" {
		t.Errorf("Owner = %q, want %q", client.Owner, "owner")
	}
}

func TestParseRepository(t *testing.T) {
	tests := []struct {
		input     string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{"octo/hello", "octo", "hello", false},
		{" octo/hello ", "octo", "hello", false},
		{"octo", "", "", true},
		{"octo/", "", "", true},
		{"/hello", "", "", true},
		{"a/b/c", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			owner, repo, err := ParseRepository(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRepository(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if owner != tt.wantOwner || repo != tt.wantRepo {
				t.Errorf("ParseRepository(%q) = %q, %q; want %q, %q", tt.input, owner, repo, tt.wantOwner, tt.wantRepo)
			}
		})
	}
}

// TestFetchIssues_Success verifies fetching issues from GitHub API.
func TestFetchIssues_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Method = %s, want GET", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization header = %q, want Bearer token", got)
		}
		if r.URL.Path != "/repos/owner/repo/issues" {
			t.Errorf("URL path = %s, want /repos/owner/repo/issues", r.URL.Path)
		}
		if got := r.URL.Query().Get("state"); got != "open" {
			t.Errorf("state param = %q, want open", got)
		}
		if got := r.URL.Query().Get("per_page"); got != "100" {
			t.Errorf("per_page param = %q, want 100", got)
		}

		writeIssues(w, []map[string]interface{}{
			{"number": 1, "title": "First issue", "state": "open"},
			{"number": 2, "title": "Second issue", "state": "open"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	issues, err := client.FetchIssues(context.Background(), types.FilterOpen)
	if err != nil {
		t.Fatalf("FetchIssues() error = %v", err)
	}

	if len(issues) != 2 {
		t.Fatalf("FetchIssues() returned %d issues, want 2", len(issues))
	}
	if issues[0].Title != "First issue" {
		t.Errorf("issues[0].Title = %q, want %q", issues[0].Title, "First issue")
	}
}

// TestFetchIssues_DefaultsToAll verifies an empty filter lists every state.
func TestFetchIssues_DefaultsToAll(t *testing.T) {
	var capturedState string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedState = r.URL.Query().Get("state")
		writeIssues(w, nil)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.FetchIssues(context.Background(), ""); err != nil {
		t.Fatalf("FetchIssues() error = %v", err)
	}
	if capturedState != "all" {
		t.Errorf("state param = %q, want all", capturedState)
	}
}

func TestFetchIssues_InvalidState(t *testing.T) {
	client := NewClient("token", "owner", "repo")
	if _, err := client.FetchIssues(context.Background(), types.StateFilter("merged")); err == nil {
		t.Error("FetchIssues() with invalid state: expected error, got nil")
	}
}

// TestFetchIssues_FiltersPullRequests verifies PRs are filtered out.
func TestFetchIssues_FiltersPullRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeIssues(w, []map[string]interface{}{
			{"number": 1, "title": "Issue", "state": "open"},
			{"number": 2, "title": "PR", "state": "open", "pull_request": map[string]string{"url": "https://api.github.com/repos/o/r/pulls/2"}},
			{"number": 3, "title": "Another issue", "state": "open"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	issues, err := client.FetchIssues(context.Background(), types.FilterAll)
	if err != nil {
		t.Fatalf("FetchIssues() error = %v", err)
	}

	if len(issues) != 2 {
		t.Fatalf("FetchIssues() returned %d issues, want 2 (PR filtered)", len(issues))
	}
	for _, issue := range issues {
		if issue.Number == 2 {
			t.Error("pull request #2 was not filtered out")
		}
	}
}

// TestFetchIssues_Pagination verifies client follows the Link header.
func TestFetchIssues_Pagination(t *testing.T) {
	var serverURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s/repos/owner/repo/issues?page=2&per_page=100&state=all>; rel="next"`, serverURL))
			writeIssues(w, []map[string]interface{}{{"number": 1, "title": "Issue 1", "state": "open"}})
		case "2":
			writeIssues(w, []map[string]interface{}{{"number": 2, "title": "Issue 2", "state": "closed"}})
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	}))
	defer server.Close()
	serverURL = server.URL

	client := newTestClient(t, server.URL)
	issues, err := client.FetchIssues(context.Background(), types.FilterAll)
	if err != nil {
		t.Fatalf("FetchIssues() error = %v", err)
	}

	if len(issues) != 2 {
		t.Fatalf("FetchIssues() returned %d issues, want 2 (from 2 pages)", len(issues))
	}
	if issues[1].State != types.StateClosed {
		t.Errorf("issues[1].State = %q, want closed", issues[1].State)
	}
}

// TestFetchIssues_RetriesServerErrors verifies transient 5xx responses are retried.
func TestFetchIssues_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"message":"bad gateway"}`))
			return
		}
		writeIssues(w, []map[string]interface{}{{"number": 7, "title": "After retry", "state": "open"}})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	issues, err := client.FetchIssues(context.Background(), types.FilterAll)
	if err != nil {
		t.Fatalf("FetchIssues() error = %v", err)
	}
	if len(issues) != 1 || issues[0].Number != 7 {
		t.Errorf("FetchIssues() = %+v, want issue #7", issues)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server calls = %d, want 2", got)
	}
}

// TestFetchIssues_ClientErrorNotRetried verifies 4xx failures surface immediately.
func TestFetchIssues_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.FetchIssues(context.Background(), types.FilterAll)
	if err == nil {
		t.Fatal("FetchIssues() expected error for 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %v, want to mention 404", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server calls = %d, want 1", got)
	}
}

// TestFetchIssues_ContextCanceled verifies a canceled context stops the listing.
func TestFetchIssues_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeIssues(w, nil)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(t, server.URL)
	if _, err := client.FetchIssues(ctx, types.FilterAll); err == nil {
		t.Error("FetchIssues() with canceled context: expected error, got nil")
	}
}
