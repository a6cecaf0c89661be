// Package remote talks to a PostgREST-style HTTP endpoint: it executes SQL
// through an RPC function and reads row counts and samples for verification.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// StatementTimeout bounds a single artifact execution.
	StatementTimeout = 60 * time.Second

	queryTimeout = 30 * time.Second

	// maxErrorBody caps how much of a failed response is kept for the report.
	maxErrorBody = 64 << 10
)

var (
	// ErrCountUnavailable is returned when the endpoint does not report an exact count.
	ErrCountUnavailable error = countUnavailableError{}

	// ErrInvalidTable is returned for an empty table name.
	ErrInvalidTable = errors.New("table name cannot be empty")
)

type countUnavailableError struct{}

func (countUnavailableError) Error() string { return "row count unavailable" }

// CountUnavailable lets callers classify the error without importing this package.
func (countUnavailableError) CountUnavailable() bool { return true }

// StatusError is returned when the endpoint answers with a non-success status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type (
	// Client executes statements and verification queries over HTTP.
	Client struct {
		cfg        *Config
		httpClient *http.Client
		logger     *slog.Logger
	}

	// ClientOption configures a Client.
	ClientOption func(*Client)
)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the structured logger used for request diagnostics.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient validates cfg and returns a client for it.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Execute posts statement to the exec RPC function.
// 200, 201 and 204 are success; anything else is a *StatusError.
func (c *Client) Execute(ctx context.Context, statement string) error {
	ctx, cancel := context.WithTimeout(ctx, StatementTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"sql_query": statement})
	if err != nil {
		return fmt.Errorf("failed to encode statement: %w", err)
	}

	endpoint := c.cfg.BaseURL + "/rest/v1/rpc/" + url.PathEscape(c.cfg.ExecFunction)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		c.logger.Debug("Exec endpoint rejected statement", slog.Int("status", resp.StatusCode))

		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}

// CountRows asks for an exact count of table via a HEAD request and reads the
// total from the Content-Range header ("0-24/1000"). A missing or "*" total
// yields ErrCountUnavailable.
func (c *Client) CountRows(ctx context.Context, table string) (int64, error) {
	resp, err := c.query(ctx, http.MethodHead, table, url.Values{"select": {"count"}}, true)
	if err != nil {
		return 0, err
	}

	_ = resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return 0, &StatusError{StatusCode: resp.StatusCode}
	}

	return parseContentRange(resp.Header.Get("Content-Range"))
}

// SampleRows returns up to limit rows of table as raw JSON objects.
func (c *Client) SampleRows(ctx context.Context, table string, limit int) ([]json.RawMessage, error) {
	params := url.Values{
		"select": {"*"},
		"limit":  {strconv.Itoa(limit)},
	}

	resp, err := c.query(ctx, http.MethodGet, table, params, false)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var rows []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s rows: %w", table, err)
	}

	return rows, nil
}

// query issues a read request; the caller owns the response body.
func (c *Client) query(
	ctx context.Context,
	method, table string,
	params url.Values,
	exactCount bool,
) (*http.Response, error) {
	if strings.TrimSpace(table) == "" {
		return nil, ErrInvalidTable
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)

	endpoint := c.cfg.BaseURL + "/rest/v1/" + url.PathEscape(table) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		cancel()

		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	c.authorize(req)

	if exactCount {
		req.Header.Set("Prefer", "count=exact")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()

		return nil, fmt.Errorf("request failed: %w", err)
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}

	return resp, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("apikey", c.cfg.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.cfg.serviceKey)
}

// cancelOnClose releases the request context once the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	defer b.cancel()

	return b.ReadCloser.Close()
}

func parseContentRange(header string) (int64, error) {
	if header == "" {
		return 0, ErrCountUnavailable
	}

	_, total, found := strings.Cut(header, "/")
	if !found || total == "*" {
		return 0, ErrCountUnavailable
	}

	n, err := strconv.ParseInt(strings.TrimSpace(total), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed Content-Range %q: %w", header, err)
	}

	return n, nil
}
