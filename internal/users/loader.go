// Package users loads the Shipwrecked user list from the upstream REST API.
package users

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultUsersPath is appended to the configured base URL.
const DefaultUsersPath = "/api/users"

// DefaultMaxBodySize bounds the response body a Loader will read.
const DefaultMaxBodySize = 32 << 20

// Loader fetches the user list for the users page. It holds no state between
// calls and is safe for concurrent use.
type Loader struct {
	http       *http.Client
	timeout    time.Duration
	timeoutSet bool
	maxBody    int64
	usersPath  string
	endpoint   string
	logger     *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the *http.Client requests are sent with. The client is
// copied if WithTimeout is also given, so hc itself is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(l *Loader) {
		l.http = hc
	}
}

// WithTimeout sets the HTTP client timeout. Zero means no timeout. It applies
// regardless of its position relative to WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.timeout = d
		l.timeoutSet = true
	}
}

// WithMaxBodySize overrides DefaultMaxBodySize.
func WithMaxBodySize(n int64) Option {
	return func(l *Loader) {
		l.maxBody = n
	}
}

// WithUsersPath overrides DefaultUsersPath.
func WithUsersPath(p string) Option {
	return func(l *Loader) {
		l.usersPath = p
	}
}

// WithLogger sets the logger used for upstream diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a loader that reads users from baseURL.
func NewLoader(baseURL string, opts ...Option) (*Loader, error) {
	l := &Loader{
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxBody:   DefaultMaxBodySize,
		usersPath: DefaultUsersPath,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.timeoutSet {
		hc := *l.http
		hc.Timeout = l.timeout
		l.http = &hc
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("users: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("users: base url %q: scheme must be http or https", baseURL)
	}

	endpoint, err := url.JoinPath(baseURL, l.usersPath)
	if err != nil {
		return nil, fmt.Errorf("users: build endpoint: %w", err)
	}
	l.endpoint = endpoint

	return l, nil
}

// Endpoint returns the URL every Load call requests.
func (l *Loader) Endpoint() string {
	return l.endpoint
}

// Load performs one GET against the users endpoint and returns the decoded
// list. ctx only bounds the request; nothing else is read from it.
func (l *Loader) Load(ctx context.Context) (Data, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint, nil)
	if err != nil {
		return Data{}, fmt.Errorf("users: create request: %w", err)
	}

	resp, err := l.http.Do(req)
	if err != nil {
		l.logger.Warn("Users request failed", "url", l.endpoint, "error", err)
		return Data{}, fmt.Errorf("%w: %w", ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		l.logger.Warn("Users API returned non-success status", "url", l.endpoint, "status", resp.StatusCode)
		return Data{}, ErrUpstreamFetch
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBody+1))
	if err != nil {
		return Data{}, fmt.Errorf("%w: read body: %w", ErrUpstreamFetch, err)
	}
	if int64(len(body)) > l.maxBody {
		l.logger.Warn("Users API response too large", "url", l.endpoint, "limit", l.maxBody)
		return Data{}, &ValidationError{Index: -1, Reason: fmt.Sprintf("response body exceeds %d bytes", l.maxBody)}
	}

	users, err := DecodeUsers(body)
	if err != nil {
		l.logger.Warn("Users API returned malformed payload", "url", l.endpoint, "error", err)
		return Data{}, err
	}

	l.logger.Debug("Loaded users", "url", l.endpoint, "count", len(users))
	return Data{Users: users}, nil
}
