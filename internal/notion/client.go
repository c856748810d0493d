package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"gitea.jw6.us/james/notioncal/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.notion.com"
	DefaultVersion = "2022-06-28"

	maxPageSize = 100
	// Guards against an upstream that never clears has_more.
	maxPages = 1000
)

// APIError is an error object returned by the Notion API.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion api: %s: %s (status %d)", e.Code, e.Message, e.Status)
}

// Client talks to the Notion REST API with an integration token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	version    string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithVersion overrides the Notion-Version header.
func WithVersion(v string) Option {
	return func(c *Client) {
		if v != "" {
			c.version = v
		}
	}
}

// WithTimeout bounds every HTTP round trip.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient returns a Client authenticating with token as a bearer credential.
func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("notion token is required")
	}

	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	hc.Timeout = 30 * time.Second

	c := &Client{
		httpClient: hc,
		baseURL:    DefaultBaseURL,
		version:    DefaultVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type queryResponse struct {
	Results    []json.RawMessage `json:"results"`
	HasMore    bool              `json:"has_more"`
	NextCursor *string           `json:"next_cursor"`
}

// QueryDatabase returns every page matching q, following continuation
// cursors until the result set is exhausted.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, q Query) ([]json.RawMessage, error) {
	if q.PageSize <= 0 || q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	endpoint := fmt.Sprintf("%s/v1/databases/%s/query", c.baseURL, url.PathEscape(databaseID))

	var results []json.RawMessage
	for page := 0; ; page++ {
		if page >= maxPages {
			return nil, fmt.Errorf("query database %s: exceeded %d result pages", databaseID, maxPages)
		}

		resp, err := c.queryPage(ctx, endpoint, q)
		if err != nil {
			return nil, fmt.Errorf("query database %s: %w", databaseID, err)
		}
		results = append(results, resp.Results...)

		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			return results, nil
		}
		q.StartCursor = *resp.NextCursor
	}
}

func (c *Client) queryPage(ctx context.Context, endpoint string, q Query) (*queryResponse, error) {
	defer observeUpstream(ctx, "query_database")()

	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", c.version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Code = "http_error"
			apiErr.Message = strings.TrimSpace(string(data))
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
		}
		apiErr.Status = resp.StatusCode
		return nil, apiErr
	}

	var out queryResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func observeUpstream(ctx context.Context, operation string) func() {
	start := time.Now()
	return func() {
		metrics.ObserveUpstreamLatency(ctx, operation, start)
	}
}
