package arr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bleeparr/internal/queue"
	"bleeparr/internal/services"
)

// HTTPDoer describes the HTTP client used by the adapters.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures an adapter.
type Option func(*client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithTimeout sets the timeout for the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *client) {
		if timeout > 0 {
			c.http = &http.Client{Timeout: timeout}
		}
	}
}

type client struct {
	name     string
	kind     queue.Kind
	endpoint EndpointFunc
	flags    FlagSource
	http     HTTPDoer
}

func newClient(name string, kind queue.Kind, endpoint EndpointFunc, flags FlagSource, opts []Option) client {
	c := client{
		name:     name,
		kind:     kind,
		endpoint: endpoint,
		flags:    flags,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *client) Kind() queue.Kind { return c.kind }

func (c *client) Name() string { return c.name }

func (c *client) current(ctx context.Context) Endpoint {
	if c.endpoint == nil {
		return Endpoint{}
	}
	ep := c.endpoint(ctx)
	ep.URL = strings.TrimRight(strings.TrimSpace(ep.URL), "/")
	ep.APIKey = strings.TrimSpace(ep.APIKey)
	return ep
}

// Enabled reports whether a URL and API key are configured.
func (c *client) Enabled(ctx context.Context) bool {
	ep := c.current(ctx)
	return ep.URL != "" && ep.APIKey != ""
}

// Ping checks connectivity through the system status endpoint.
func (c *client) Ping(ctx context.Context) error {
	var status struct {
		Version string `json:"version"`
	}
	return c.getJSON(ctx, "/api/v3/system/status", nil, &status)
}

func (c *client) filteredSet(ctx context.Context) (map[int64]struct{}, error) {
	if c.flags == nil {
		return map[int64]struct{}{}, nil
	}
	ids, err := c.flags.FilteredIDs(ctx, c.kind)
	if err != nil {
		return nil, fmt.Errorf("%s filtered ids: %w", c.name, err)
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (c *client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	ep := c.current(ctx)
	if ep.URL == "" || ep.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, c.name, "request", "url and api key are required", nil)
	}
	target := ep.URL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", c.name, err)
	}
	req.Header.Set("X-Api-Key", ep.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, c.name, "GET "+path, "", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, c.name, "GET "+path, "resource not found", nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, c.name, "GET "+path, fmt.Sprintf("rejected api key (status %d)", resp.StatusCode), nil)
	case resp.StatusCode >= http.StatusMultipleChoices:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return services.Wrap(services.ErrTransient, c.name, "GET "+path, fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternalTool, c.name, "decode "+path, "", err)
	}
	return nil
}

type historyRecord struct {
	SeriesID    int64     `json:"seriesId"`
	EpisodeID   int64     `json:"episodeId"`
	MovieID     int64     `json:"movieId"`
	SourceTitle string    `json:"sourceTitle"`
	EventType   string    `json:"eventType"`
	Date        time.Time `json:"date"`
}

func (c *client) history(ctx context.Context, since time.Time) ([]historyRecord, error) {
	query := url.Values{}
	query.Set("date", since.UTC().Format(time.RFC3339))
	query.Set("eventType", importEventType)
	var records []historyRecord
	if err := c.getJSON(ctx, "/api/v3/history/since", query, &records); err != nil {
		return nil, err
	}
	out := records[:0]
	for _, rec := range records {
		if rec.EventType != "" && !strings.EqualFold(rec.EventType, importEventType) {
			continue
		}
		if !since.IsZero() && !rec.Date.IsZero() && rec.Date.Before(since) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
