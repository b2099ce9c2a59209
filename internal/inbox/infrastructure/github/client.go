// Package github talks to the GitHub contents API that carries the shared inbox file.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 10 * time.Second
	apiVersion     = "2022-11-28"
	commitMessage  = "Sync inbox"
)

// PullStatus describes what a pull observed.
type PullStatus int

const (
	// PullUnchanged means the remote still matches the cached ETag.
	PullUnchanged PullStatus = iota
	// PullNotFound means the file does not exist yet.
	PullNotFound
	// PullChanged means a new revision was fetched.
	PullChanged
)

func (s PullStatus) String() string {
	switch s {
	case PullUnchanged:
		return "unchanged"
	case PullNotFound:
		return "not_found"
	case PullChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// PullResult is the outcome of a conditional fetch.
type PullResult struct {
	Status      PullStatus
	Items       []domain.InboxItem
	SHA         string
	LastUpdated string
}

// Changed reports whether Items carries a fresh remote revision.
func (r *PullResult) Changed() bool {
	return r != nil && r.Status == PullChanged
}

// BreakerConfig configures the circuit breaker in front of the API.
type BreakerConfig struct {
	Enabled bool
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold uint32
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
	// Interval resets the failure counts while closed. Zero never resets.
	Interval time.Duration
	// Timeout is how long the circuit stays open.
	Timeout time.Duration
}

// DefaultBreakerConfig returns the breaker settings used when none are given.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:          true,
		FailureThreshold: 5,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
	}
}

// Client pulls and pushes inbox files through the GitHub contents API.
// It remembers ETags and content SHAs per resource between calls.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      *Cache
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates a client that authenticates with source.
func NewClient(source oauth2.TokenSource, logger *slog.Logger) *Client {
	return NewClientWithBaseURL(source, logger, defaultBaseURL)
}

// NewClientWithBaseURL creates a client against a custom API root.
func NewClientWithBaseURL(source oauth2.TokenSource, logger *slog.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Transport: &oauth2.Transport{
				Source: source,
				Base:   http.DefaultTransport,
			},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   NewCache(),
		logger:  logger,
		now:     time.Now,
	}
	return c.WithBreaker(DefaultBreakerConfig())
}

// NewStaticTokenClient is a convenience for a personal access token.
func NewStaticTokenClient(token string, logger *slog.Logger) *Client {
	return NewStaticTokenClientWithBaseURL(token, logger, defaultBaseURL)
}

// NewStaticTokenClientWithBaseURL uses a personal access token against a custom API root.
func NewStaticTokenClientWithBaseURL(token string, logger *slog.Logger, baseURL string) *Client {
	return NewClientWithBaseURL(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}), logger, baseURL)
}

// WithTimeout sets the per-request deadline.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithBreaker replaces the circuit breaker. A disabled config removes it.
func (c *Client) WithBreaker(cfg BreakerConfig) *Client {
	if !cfg.Enabled {
		c.breaker = nil
		return c
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "github-contents",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return c
}

// WithClock overrides the time source used to stamp pushed envelopes.
func (c *Client) WithClock(now func() time.Time) *Client {
	if now != nil {
		c.now = now
	}
	return c
}

// Cache exposes the validator cache.
func (c *Client) Cache() *Cache {
	return c.cache
}

// BreakerState reports the circuit state, or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

type contentResponse struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// Pull fetches the resource unless it still matches the cached ETag.
// A missing file is not an error. A successful fetch caches both the ETag and the SHA.
func (c *Client) Pull(ctx context.Context, res Resource) (*PullResult, error) {
	key := res.Key()
	req, err := c.newRequest(ctx, http.MethodGet, res, nil)
	if err != nil {
		return nil, unavailable(key, err)
	}
	if etag, ok := c.cache.ETag(key); ok {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, unavailable(key, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		c.logger.Debug("remote inbox unchanged", "resource", key)
		return &PullResult{Status: PullUnchanged}, nil
	case resp.StatusCode == http.StatusNotFound:
		c.logger.Debug("remote inbox not found", "resource", key)
		return &PullResult{Status: PullNotFound}, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, unavailable(key, responseError(resp))
	}

	var content contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, &DecodeError{Resource: key, Err: err}
	}
	file, err := decodeContent(content)
	if err != nil {
		return nil, &DecodeError{Resource: key, Err: err}
	}

	if etag := resp.Header.Get("ETag"); etag != "" {
		c.cache.SetETag(key, etag)
	}
	if content.SHA != "" {
		c.cache.SetSHA(key, content.SHA)
	}

	c.logger.Debug("remote inbox pulled", "resource", key, "items", len(file.Items), "sha", content.SHA)
	return &PullResult{
		Status:      PullChanged,
		Items:       file.Items,
		SHA:         content.SHA,
		LastUpdated: file.LastUpdated,
	}, nil
}

// Push writes items as a new revision of the resource.
// It names the cached SHA, looking it up first when none is cached.
// A stale SHA yields a *ConflictError and drops the cached validators.
// On success the new SHA is cached and the ETag cleared so the next pull refetches.
func (c *Client) Push(ctx context.Context, res Resource, items []domain.InboxItem) error {
	key := res.Key()
	sha, ok := c.cache.SHA(key)
	if !ok {
		fetched, err := c.fetchSHA(ctx, res)
		if err != nil {
			return &PushError{Resource: key, Err: err}
		}
		sha = fetched
	}

	data, err := domain.EncodeFile(items, c.now())
	if err != nil {
		return &PushError{Resource: key, Err: err}
	}
	payload, err := json.Marshal(putRequest{
		Message: commitMessage,
		Content: base64.StdEncoding.EncodeToString(data),
		SHA:     sha,
	})
	if err != nil {
		return &PushError{Resource: key, Err: err}
	}

	req, err := c.newRequest(ctx, http.MethodPut, res, bytes.NewReader(payload))
	if err != nil {
		return &PushError{Resource: key, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return &PushError{Resource: key, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusPreconditionFailed:
		c.cache.Invalidate(key)
		c.logger.Warn("remote inbox changed since last pull", "resource", key, "sha", sha)
		return &ConflictError{Resource: key, SHA: sha}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &PushError{Resource: key, Err: responseError(resp)}
	}

	c.cache.ClearETag(key)
	var out putResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Content.SHA == "" {
		c.cache.ClearSHA(key)
		c.logger.Warn("push response carried no revision", "resource", key, "error", err)
		return nil
	}
	c.cache.SetSHA(key, out.Content.SHA)
	c.logger.Info("remote inbox pushed", "resource", key, "items", len(items), "sha", out.Content.SHA)
	return nil
}

// fetchSHA reads the current revision without touching the ETag, so the next pull
// still fetches and merges the body. A missing file yields an empty SHA.
func (c *Client) fetchSHA(ctx context.Context, res Resource) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, res, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", responseError(resp)
	}

	var content contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return "", fmt.Errorf("decode revision: %w", err)
	}
	if content.SHA != "" {
		c.cache.SetSHA(res.Key(), content.SHA)
	}
	return content.SHA, nil
}

func (c *Client) newRequest(ctx context.Context, method string, res Resource, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, res.contentsURL(c.baseURL), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	return req, nil
}

// do sends req through the breaker. Transport errors and 5xx responses count as failures.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.send(req)
	}
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.send(req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("circuit %s: %w", c.breaker.Name(), err)
	}
	return resp, err
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 500 {
		defer resp.Body.Close()
		return nil, responseError(resp)
	}
	return resp, nil
}

func decodeContent(content contentResponse) (*domain.InboxFile, error) {
	if content.Encoding != "" && content.Encoding != "base64" {
		return nil, fmt.Errorf("unsupported content encoding %q", content.Encoding)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.NewReplacer("\n", "", "\r", "").Replace(content.Content))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return domain.DecodeFile(raw)
}
