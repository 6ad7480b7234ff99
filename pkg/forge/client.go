package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is the public Forge API.
	DefaultBaseURL = "https://forgeapi.puppet.com"

	// RequestIDHeader carries a fresh request ID on every attempt.
	RequestIDHeader = "X-Request-Id"

	defaultAttempts = 3
	defaultBackoff  = time.Second
)

// Client reads owners, modules, releases and release files from a Forge.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger

	// Attempts bounds how often a request failing with a 5xx status or a
	// network error is tried. Zero means 3.
	Attempts int
	// Backoff is the delay before the first retry. It doubles after each
	// retry. Zero means one second.
	Backoff time.Duration
}

// NewClient returns a client for the Forge at baseURL, or the public Forge
// if baseURL is empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: NewHTTPClient(),
	}
}

// NewHTTPClient returns an HTTP client with the timeout used for Forge
// requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// Owner returns the user with the given name.
func (c *Client) Owner(ctx context.Context, name string) (*Owner, error) {
	var o Owner
	if err := c.get(ctx, "/v3/users/"+url.PathEscape(name), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// Module returns a module by its slug, "owner-name". "owner/name" is
// accepted too.
func (c *Client) Module(ctx context.Context, slug string) (*Module, error) {
	var m Module
	if err := c.get(ctx, "/v3/modules/"+url.PathEscape(normalizeSlug(slug)), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Release returns a release by its slug, "owner-name-version".
func (c *Client) Release(ctx context.Context, slug string) (*Release, error) {
	var r Release
	if err := c.get(ctx, "/v3/releases/"+url.PathEscape(normalizeSlug(slug)), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListModules returns every module published by owner, following
// pagination links.
func (c *Client) ListModules(ctx context.Context, owner string) ([]Module, error) {
	return list[Module](ctx, c, "/v3/modules?"+url.Values{"owner": {owner}}.Encode())
}

// ListReleases returns every release of the module with the given slug,
// following pagination links.
func (c *Client) ListReleases(ctx context.Context, module string) ([]Release, error) {
	return list[Release](ctx, c, "/v3/releases?"+url.Values{"module": {normalizeSlug(module)}}.Encode())
}

// DownloadFile copies the release file with the given name, such as
// "puppetlabs-stdlib-4.1.0.tar.gz", to w. Only the request is retried;
// once copying has started a failure is returned as is.
func (c *Client) DownloadFile(ctx context.Context, name string, w io.Writer) (int64, error) {
	var n int64
	err := c.do(ctx, "/v3/files/"+url.PathEscape(name), func(body io.Reader) error {
		var err error
		n, err = io.Copy(w, body)
		return err
	})
	return n, err
}

func list[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var all []T
	for path != "" {
		var p page[T]
		if err := c.get(ctx, path, &p); err != nil {
			return nil, err
		}
		all = append(all, p.Results...)
		path = p.Pagination.Next
	}
	if all == nil {
		all = []T{}
	}
	return all, nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	return c.do(ctx, path, func(body io.Reader) error {
		if err := json.NewDecoder(body).Decode(v); err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		return nil
	})
}

// do performs a GET of path, handing the body of the successful response
// to read. Network errors and server errors are retried, each attempt with
// a request ID of its own.
func (c *Client) do(ctx context.Context, path string, read func(io.Reader) error) error {
	policy := c.retryPolicy()
	for attempt := 1; ; attempt++ {
		body, requestID, err := c.doRequest(ctx, path)
		if err == nil {
			defer body.Close()
			return read(body)
		}
		if !transient(err) || attempt >= policy.attempts {
			return err
		}
		c.logger().WarnContext(ctx, "retrying forge request",
			"path", path, "attempt", attempt, "request_id", requestID, "error", err)
		if err := policy.wait(ctx, attempt); err != nil {
			return err
		}
	}
}

func (c *Client) retryPolicy() backoff {
	b := backoff{attempts: c.Attempts, delay: c.Backoff}
	if b.attempts <= 0 {
		b.attempts = defaultAttempts
	}
	if b.delay <= 0 {
		b.delay = defaultBackoff
	}
	return b
}

func (c *Client) doRequest(ctx context.Context, path string) (io.ReadCloser, string, error) {
	u := strings.TrimSuffix(c.BaseURL, "/") + path
	requestID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, requestID, err
	}
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")

	c.logger().DebugContext(ctx, "forge request", "url", u, "request_id", requestID)
	resp, err := c.httpClient().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, requestID, ctx.Err()
		}
		return nil, requestID, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if err := checkStatus(resp.StatusCode, u, requestID); err != nil {
		resp.Body.Close()
		return nil, requestID, err
	}
	return resp.Body, requestID, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func normalizeSlug(slug string) string {
	return strings.ReplaceAll(slug, "/", "-")
}
