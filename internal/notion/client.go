package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultVersion is the API version sent with every request.
const DefaultVersion = "2022-06-28"

// ErrRateLimited is returned when the API throttles a request. It is never retried.
var ErrRateLimited = errors.New("notion: rate limited")

// Client communicates with the Notion HTTP API.
type Client struct {
	baseURL    string
	token      string
	version    string
	pageSize   int
	limiter    *rate.Limiter
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithRequestDelay sets the fixed delay waited before every request.
func WithRequestDelay(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithVersion overrides the Notion-Version header.
func WithVersion(v string) Option {
	return func(c *Client) {
		if v != "" {
			c.version = v
		}
	}
}

// WithPageSize sets the page size used when listing children.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 && n <= 100 {
			c.pageSize = n
		}
	}
}

func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		version:  DefaultVersion,
		pageSize: 100,
		limiter:  rate.NewLimiter(rate.Every(350*time.Millisecond), 1),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetBlock retrieves a block by id. A missing block returns (nil, nil).
func (c *Client) GetBlock(ctx context.Context, id string) (*Block, error) {
	var b Block
	found, err := c.get(ctx, "/blocks/"+url.PathEscape(id), &b)
	if err != nil {
		return nil, fmt.Errorf("get block %s: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	return &b, nil
}

// ListChildren returns one page of a block's children starting at cursor.
// A missing parent returns an empty page.
func (c *Client) ListChildren(ctx context.Context, id, cursor string) (*ChildrenPage, error) {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(c.pageSize))
	if cursor != "" {
		q.Set("start_cursor", cursor)
	}
	var page ChildrenPage
	found, err := c.get(ctx, "/blocks/"+url.PathEscape(id)+"/children?"+q.Encode(), &page)
	if err != nil {
		return nil, fmt.Errorf("list children %s: %w", id, err)
	}
	if !found {
		return &ChildrenPage{Object: "list"}, nil
	}
	return &page, nil
}

// GetPage retrieves page metadata by id. A missing page returns (nil, nil).
func (c *Client) GetPage(ctx context.Context, id string) (*Page, error) {
	var p Page
	found, err := c.get(ctx, "/pages/"+url.PathEscape(id), &p)
	if err != nil {
		return nil, fmt.Errorf("get page %s: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

// get performs a throttled GET and decodes the body into out. It reports
// false when the object does not exist or is not shared with the integration.
func (c *Client) get(ctx context.Context, path string, out any) (bool, error) {
	// Drop any slot saved up while idle so each request waits the full delay.
	c.limiter.Allow()
	if err := c.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("wait for request slot: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Notion-Version", c.version)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return false, fmt.Errorf("%w (retry after %q)", ErrRateLimited, resp.Header.Get("Retry-After"))
	case resp.StatusCode != http.StatusOK:
		return false, decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return true, nil
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	apiErr.Status = resp.StatusCode
	if apiErr.Code == "rate_limited" {
		return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
	}
	return apiErr
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
