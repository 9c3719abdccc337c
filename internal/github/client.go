// Package github provides a client for listing repositories and fetching
// their traffic from the GitHub REST API.
package github

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
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com"

	requestTimeout = 30 * time.Second
	maxBodySize    = 4 << 20 // 4 MB
	perPage        = 100
	maxPages       = 50
)

var (
	// ErrAuth indicates the token is missing, expired, or invalid.
	ErrAuth = errors.New("github: missing or invalid credential")
	// ErrRateLimited indicates the API rate limit was hit.
	ErrRateLimited = errors.New("github: rate limited")
)

// UpstreamError reports a failed or unsuccessful call to the GitHub API.
type UpstreamError struct {
	Repo   string // empty for account-level calls
	Op     string
	Status int // 0 when no response was received
	Err    error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	b.WriteString("github: ")
	b.WriteString(e.Op)
	if e.Repo != "" {
		b.WriteString(" for ")
		b.WriteString(e.Repo)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Client fetches repositories and traffic for the authenticated user.
type Client struct {
	baseURL  string
	http     *http.Client
	maxPages int

	mu   sync.Mutex
	rate RateStatus
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL string
	base    *http.Client
}

// WithBaseURL points the client at a different API root (GitHub Enterprise, tests).
func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = u }
}

// WithHTTPClient sets the transport the bearer token is layered onto.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.base = hc }
}

// NewClient creates a client authenticating with token as a bearer credential.
// Returns ErrAuth if the token is empty.
func NewClient(token string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrAuth
	}

	o := clientOptions{baseURL: DefaultBaseURL}
	for _, fn := range opts {
		fn(&o)
	}

	ctx := context.Background()
	if o.base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.base)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})

	return &Client{
		baseURL:  strings.TrimRight(o.baseURL, "/"),
		http:     oauth2.NewClient(ctx, src),
		maxPages: maxPages,
	}, nil
}

// ListOwnedRepos returns every non-fork repository owned by the authenticated user.
func (c *Client) ListOwnedRepos(ctx context.Context) ([]Repository, error) {
	var owned []Repository
	for page := 1; page <= c.maxPages; page++ {
		q := url.Values{}
		q.Set("per_page", fmt.Sprint(perPage))
		q.Set("sort", "updated")
		q.Set("affiliation", "owner")
		q.Set("page", fmt.Sprint(page))

		body, err := c.get(ctx, "list repos", "/user/repos?"+q.Encode())
		if err != nil {
			return nil, err
		}

		var repos []Repository
		if err := json.Unmarshal(body, &repos); err != nil {
			return nil, &UpstreamError{Op: "list repos", Err: fmt.Errorf("parsing response: %w", err)}
		}
		for _, r := range repos {
			if !r.Fork {
				owned = append(owned, r)
			}
		}
		if len(repos) < perPage {
			return owned, nil
		}
	}
	return nil, &UpstreamError{Op: "list repos", Err: fmt.Errorf("more than %d pages of repositories", c.maxPages)}
}

// FetchTraffic fetches views, clones, and popular referrers for fullName
// concurrently. If any of the three fails the whole fetch fails.
func (c *Client) FetchTraffic(ctx context.Context, fullName string) (*RepoTraffic, error) {
	var t RepoTraffic
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.getJSON(gctx, "fetch views", "/repos/"+fullName+"/traffic/views", &t.Views)
	})
	g.Go(func() error {
		return c.getJSON(gctx, "fetch clones", "/repos/"+fullName+"/traffic/clones", &t.Clones)
	})
	g.Go(func() error {
		return c.getJSON(gctx, "fetch referrers", "/repos/"+fullName+"/traffic/popular/referrers", &t.Referrers)
	})

	if err := g.Wait(); err != nil {
		ue := &UpstreamError{Repo: fullName, Op: "fetch traffic", Err: err}
		var inner *UpstreamError
		if errors.As(err, &inner) {
			ue.Status = inner.Status
		}
		return nil, ue
	}
	return &t, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, v any) error {
	body, err := c.get(ctx, op, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &UpstreamError{Op: op, Err: fmt.Errorf("parsing response: %w", err)}
	}
	return nil
}

// get performs an authenticated GET request and returns the response body.
func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &UpstreamError{Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "github.com/theirongolddev/ghtraffic/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: op, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()
	c.noteRate(resp.Header)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Err: ErrAuth}
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Err: ErrRateLimited}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}
	return body, nil
}

// RateLimit returns the quota reported by the most recent response.
func (c *Client) RateLimit() RateStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

func (c *Client) noteRate(h http.Header) {
	limit, err := strconv.Atoi(h.Get("X-RateLimit-Limit"))
	if err != nil {
		return
	}
	remaining, _ := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	reset, _ := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate = RateStatus{Limit: limit, Remaining: remaining, Reset: time.Unix(reset, 0)}
}

// DateOf truncates an ISO 8601 timestamp to its calendar date.
func DateOf(timestamp string) string {
	date, _, _ := strings.Cut(timestamp, "T")
	return date
}
