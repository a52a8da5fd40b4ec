// Package airtable provides a client for the Airtable REST API.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cenkalti/backoff/v4"

	"github.com/issuesync/issuesync/internal/types"
)

// NewClient creates a new Airtable client for one table.
func NewClient(apiKey, baseID, table string) *Client {
	return &Client{
		APIKey:  apiKey,
		BaseID:  baseID,
		Table:   table,
		BaseURL: DefaultAPIEndpoint,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		retryDelay: RetryDelay,
	}
}

// WithHTTPClient returns a new client with a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	clone := *c
	clone.HTTPClient = httpClient
	return &clone
}

// WithBaseURL returns a new client with a custom base URL (for testing).
func (c *Client) WithBaseURL(baseURL string) *Client {
	clone := *c
	clone.BaseURL = baseURL
	return &clone
}

// TableName returns "base/table" for messages and telemetry.
func (c *Client) TableName() string {
	return c.BaseID + "/" + c.Table
}

// buildURL constructs the table endpoint URL.
func (c *Client) buildURL(params url.Values) string {
	u := c.BaseURL + "/" + url.PathEscape(c.BaseID) + "/" + url.PathEscape(c.Table)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// doRequest performs an HTTP request with authentication and retry logic.
// Rate limits (429) are always retried with exponential backoff. Transport
// failures and server errors are retried only for idempotent methods: a
// POST may have been committed, so it is retried on 429 alone.
func (c *Client) doRequest(ctx context.Context, method, urlStr string, body interface{}) ([]byte, error) {
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var respBody []byte
	attempt := 0
	op := func() error {
		attempt++

		var reqBody io.Reader
		if jsonBody != nil {
			reqBody = bytes.NewReader(jsonBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, urlStr, reqBody)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		req.Header.Set("Authorization", "Bearer "+c.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			err = fmt.Errorf("request failed (attempt %d/%d): %w", attempt, MaxRetries+1, err)
			if method == http.MethodPost {
				return backoff.Permanent(err)
			}
			return err
		}

		const maxResponseSize = 50 * 1024 * 1024
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response (attempt %d/%d): %w", attempt, MaxRetries+1, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := parseAPIError(resp.StatusCode, data)
			if resp.StatusCode == http.StatusTooManyRequests {
				return apiErr
			}
			if resp.StatusCode >= http.StatusInternalServerError && method != http.MethodPost {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		respBody = data
		return nil
	}

	if err := backoff.Retry(op, c.newBackOff(ctx)); err != nil {
		return nil, err
	}
	return respBody, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryDelay
	bo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(bo, MaxRetries), ctx)
}

// parseAPIError decodes Airtable's error envelope, which is either
// {"error": {"type": ..., "message": ...}} or {"error": "TYPE"}.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Type: http.StatusText(status)}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		apiErr.Message = string(bytes.TrimSpace(body))
		return apiErr
	}

	var detailed struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &detailed); err == nil {
		if detailed.Type != "" {
			apiErr.Type = detailed.Type
		}
		apiErr.Message = detailed.Message
		return apiErr
	}

	var short string
	if err := json.Unmarshal(envelope.Error, &short); err == nil && short != "" {
		apiErr.Type = short
	}
	return apiErr
}

// ListRecords retrieves every record in the table, following the offset
// cursor until Airtable stops returning one.
func (c *Client) ListRecords(ctx context.Context) ([]types.Row, error) {
	var allRows []types.Row
	offset := ""

	for page := 1; ; page++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		params := url.Values{}
		params.Set("pageSize", strconv.Itoa(MaxPageSize))
		if offset != "" {
			params.Set("offset", offset)
		}

		respBody, err := c.doRequest(ctx, http.MethodGet, c.buildURL(params), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list records: %w", err)
		}

		var resp listResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse records response: %w", err)
		}
		allRows = append(allRows, toRows(resp.Records)...)

		if resp.Offset == "" {
			break
		}
		if page >= MaxPages {
			return nil, fmt.Errorf("pagination limit exceeded: stopped after %d pages", MaxPages)
		}
		offset = resp.Offset
	}

	return allRows, nil
}

// CreateRecords inserts up to MaxRecordsPerRequest rows in one call.
func (c *Client) CreateRecords(ctx context.Context, fields []types.Fields) ([]types.Row, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	if len(fields) > MaxRecordsPerRequest {
		return nil, fmt.Errorf("create %d records: %w", len(fields), ErrBatchTooLarge)
	}

	records := make([]Record, len(fields))
	for i, f := range fields {
		records[i] = Record{Fields: f}
	}

	rows, err := c.write(ctx, http.MethodPost, records)
	if err != nil {
		return nil, fmt.Errorf("failed to create records: %w", err)
	}
	return rows, nil
}

// UpdateRecords patches up to MaxRecordsPerRequest existing rows in one call.
// Only the supplied fields change; a nil value clears the column.
func (c *Client) UpdateRecords(ctx context.Context, rows []types.Row) ([]types.Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) > MaxRecordsPerRequest {
		return nil, fmt.Errorf("update %d records: %w", len(rows), ErrBatchTooLarge)
	}

	records := make([]Record, len(rows))
	for i, r := range rows {
		if r.ID == "" {
			return nil, fmt.Errorf("update record %d: missing record id", i)
		}
		records[i] = Record{ID: r.ID, Fields: r.Fields}
	}

	updated, err := c.write(ctx, http.MethodPatch, records)
	if err != nil {
		return nil, fmt.Errorf("failed to update records: %w", err)
	}
	return updated, nil
}

func (c *Client) write(ctx context.Context, method string, records []Record) ([]types.Row, error) {
	respBody, err := c.doRequest(ctx, method, c.buildURL(nil), writeRequest{
		Records:  records,
		Typecast: true,
	})
	if err != nil {
		return nil, err
	}

	var resp writeResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse write response: %w", err)
	}
	return toRows(resp.Records), nil
}
