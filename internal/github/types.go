// Package github reads issues from the GitHub REST API.
//
// The client lists every issue of one repository, page by page, and drops
// pull requests, which the issues endpoint returns alongside real issues.
package github

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	gh "github.com/google/go-github/v72/github"
)

// API configuration constants.
const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the maximum number of retries for rate-limited or failed requests.
	MaxRetries = 3

	// RetryDelay is the base delay between retries (exponential backoff).
	RetryDelay = time.Second

	// MaxPageSize is the maximum number of issues to fetch per page.
	MaxPageSize = 100

	// MaxPages is the maximum number of pages to fetch before stopping.
	// This prevents infinite loops from malformed Link headers.
	MaxPages = 1000
)

// Client lists issues of a single repository.
type Client struct {
	Owner string // Repository owner (user or org)
	Repo  string // Repository name

	httpClient *http.Client
	api        *gh.Client
	retryDelay time.Duration
}

// ParseRepository splits an "owner/name" identifier.
func ParseRepository(s string) (owner, repo string, err error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q (expected owner/name)", s)
	}
	return parts[0], parts[1], nil
}
