// Package github reads issues from the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cenkalti/backoff/v4"
	gh "github.com/google/go-github/v72/github"
	"golang.org/x/oauth2"

	"github.com/issuesync/issuesync/internal/types"
)

// NewClient creates a new GitHub client authenticated with a personal access token.
func NewClient(token, owner, repo string) *Client {
	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	))
	httpClient.Timeout = DefaultTimeout

	return &Client{
		Owner:      owner,
		Repo:       repo,
		httpClient: httpClient,
		api:        gh.NewClient(httpClient),
		retryDelay: RetryDelay,
	}
}

// WithBaseURL returns a new client pointed at a different API root
// (GitHub Enterprise, or a test server).
func (c *Client) WithBaseURL(baseURL string) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub base URL %q: %w", baseURL, err)
	}

	api := gh.NewClient(c.httpClient)
	api.BaseURL = u
	return &Client{
		Owner:      c.Owner,
		Repo:       c.Repo,
		httpClient: c.httpClient,
		api:        api,
		retryDelay: c.retryDelay,
	}, nil
}

// Repository returns the "owner/repo" identifier.
func (c *Client) Repository() string {
	return c.Owner + "/" + c.Repo
}

// FetchIssues retrieves every issue matching the state filter.
// Pull requests are filtered out.
func (c *Client) FetchIssues(ctx context.Context, state types.StateFilter) ([]types.Issue, error) {
	if state == "" {
		state = types.FilterAll
	}
	if !state.IsValid() {
		return nil, fmt.Errorf("invalid state filter %q", state)
	}

	opts := &gh.IssueListByRepoOptions{
		State: string(state),
		ListOptions: gh.ListOptions{
			PerPage: MaxPageSize,
			Page:    1,
		},
	}

	var allIssues []types.Issue
	for pages := 1; ; pages++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		issues, resp, err := c.fetchPage(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch issues page %d: %w", opts.ListOptions.Page, err)
		}

		for _, issue := range issues {
			if issue == nil || issue.IsPullRequest() {
				continue
			}
			allIssues = append(allIssues, IssueFromGitHub(issue))
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		if pages >= MaxPages {
			return nil, fmt.Errorf("pagination limit exceeded: stopped after %d pages", MaxPages)
		}
		opts.ListOptions.Page = resp.NextPage
	}

	return allIssues, nil
}

// fetchPage lists one page, retrying secondary rate limits and server errors.
func (c *Client) fetchPage(ctx context.Context, opts *gh.IssueListByRepoOptions) ([]*gh.Issue, *gh.Response, error) {
	var (
		issues []*gh.Issue
		resp   *gh.Response
	)

	op := func() error {
		var err error
		issues, resp, err = c.api.Issues.ListByRepo(ctx, c.Owner, c.Repo, opts)
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(op, c.newBackOff(ctx)); err != nil {
		return nil, nil, err
	}
	return issues, resp, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryDelay
	bo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(bo, MaxRetries), ctx)
}

// isRetryable reports whether a failed listing call is worth repeating.
// Primary rate limits reset on the hour, so they fail fast instead.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return true
	}
	var rate *gh.RateLimitError
	if errors.As(err, &rate) {
		return false
	}
	var apiErr *gh.ErrorResponse
	if errors.As(err, &apiErr) {
		return apiErr.Response != nil && apiErr.Response.StatusCode >= http.StatusInternalServerError
	}
	// Transport-level failure (connection reset, timeout).
	return true
}
