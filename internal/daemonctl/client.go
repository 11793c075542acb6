package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bleeparr/internal/api"
	"bleeparr/internal/daemon"
)

// ErrUnavailable reports that no daemon answered at the configured address.
var ErrUnavailable = errors.New("daemon API unavailable")

// Client issues control requests to a running daemon.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient returns a client for bind, or ErrUnavailable when bind is empty.
func NewClient(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, ErrUnavailable
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api bind: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""
	// No client timeout; a sync blocks until the cycle finishes and callers
	// bound requests through their context.
	return &Client{base: base, token: strings.TrimSpace(token), http: &http.Client{}}, nil
}

// APIError is a non-success response from the daemon.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c == nil {
		return ErrUnavailable
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if IsUnavailable(err) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		}
		if out != nil {
			// Sync failures still carry the cycle summary.
			_ = json.Unmarshal(data, out)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Ping reports whether the daemon answers within timeout.
func (c *Client) Ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := c.Status(ctx)
	return err
}

// Status returns the daemon status.
func (c *Client) Status(ctx context.Context) (daemon.Status, error) {
	var out daemon.Status
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &out)
	return out, err
}

// Preflight runs the daemon preflight checks.
func (c *Client) Preflight(ctx context.Context) ([]api.CheckResult, error) {
	var out []api.CheckResult
	err := c.do(ctx, http.MethodGet, "/api/preflight", nil, nil, &out)
	return out, err
}

// Enqueue admits one item. An empty Kind with a zero ItemID enqueues a bare path.
func (c *Client) Enqueue(ctx context.Context, req api.EnqueueRequest) (api.EnqueueResponse, error) {
	var out api.EnqueueResponse
	err := c.do(ctx, http.MethodPost, "/api/queue", nil, req, &out)
	return out, err
}

// EnqueueEntity queues every file of a series or movie.
func (c *Client) EnqueueEntity(ctx context.Context, kind string, id int64, dryRun *bool) (api.BulkEnqueueResponse, error) {
	query := url.Values{}
	if dryRun != nil {
		query.Set("dryRun", strconv.FormatBool(*dryRun))
	}
	var out api.BulkEnqueueResponse
	err := c.do(ctx, http.MethodPost, "/api/queue/"+url.PathEscape(kind)+"/"+strconv.FormatInt(id, 10), query, nil, &out)
	return out, err
}

// ResetQueue drops every pending item.
func (c *Client) ResetQueue(ctx context.Context) (api.ResetResponse, error) {
	var out api.ResetResponse
	err := c.do(ctx, http.MethodDelete, "/api/queue", nil, nil, &out)
	return out, err
}

// History returns one page of outcomes.
func (c *Client) History(ctx context.Context, kind string, limit, offset int) (api.HistoryResponse, error) {
	query := url.Values{}
	if kind != "" {
		query.Set("kind", kind)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
	var out api.HistoryResponse
	err := c.do(ctx, http.MethodGet, "/api/history", query, nil, &out)
	return out, err
}

// ResetHistory truncates history.
func (c *Client) ResetHistory(ctx context.Context) (api.ResetResponse, error) {
	var out api.ResetResponse
	err := c.do(ctx, http.MethodDelete, "/api/history", nil, nil, &out)
	return out, err
}

// SetFiltered sets an opt-in flag.
func (c *Client) SetFiltered(ctx context.Context, kind string, id int64, filtered bool) (api.FilterItem, error) {
	var out api.FilterItem
	err := c.do(ctx, http.MethodPut, "/api/filtered/"+url.PathEscape(kind)+"/"+strconv.FormatInt(id, 10), nil, api.FilterRequest{Filtered: filtered}, &out)
	return out, err
}

// Flags lists stored opt-in flags.
func (c *Client) Flags(ctx context.Context) ([]api.FilterItem, error) {
	var out []api.FilterItem
	err := c.do(ctx, http.MethodGet, "/api/filtered", nil, nil, &out)
	return out, err
}

// Sync runs one poll cycle on the daemon and waits for it.
func (c *Client) Sync(ctx context.Context) (api.SyncResponse, error) {
	var out api.SyncResponse
	err := c.do(ctx, http.MethodPost, "/api/sync", nil, nil, &out)
	return out, err
}

// IsUnavailable reports whether err means nothing is listening.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
