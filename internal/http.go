package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	sgerrors "github.com/sensorgrid/sensorgrid-go/pkg/errors"
)

// TokenProvider supplies a currently-valid bearer token, refreshing it if
// necessary. The Authenticator implements this interface.
type TokenProvider interface {
	// Token returns an access token including the scheme prefix.
	Token(ctx context.Context) (string, error)
}

const (
	// DefaultPageSize is requested from list endpoints during aggregation.
	DefaultPageSize = 100

	// defaultRetryAfter is used when a 429 response carries no parseable
	// Retry-After header.
	defaultRetryAfter = 5 * time.Second

	// maxRateLimitRetries bounds the transparent retries performed for one
	// logical request. The original protocol left this unbounded; a cap
	// keeps a misbehaving server from hanging callers forever.
	maxRateLimitRetries = 5

	// nextPageTokenKey is the paging cursor field in list envelopes.
	nextPageTokenKey = "nextPageToken"
)

// RateLimitConfig controls client-side throttling applied before requests
// reach the API.
type RateLimitConfig struct {
	// RequestsPerMinute caps steady-state throughput. Defaults to 300 if zero.
	RequestsPerMinute float64
	// Burst allows short spikes above the steady-state rate. Defaults to 20 if zero.
	Burst int
}

const (
	defaultRequestsPerMinute = 300
	defaultRateLimitBurst    = 20
	secondsPerMinute         = 60.0
)

// Client is the request pipeline shared by every resource operation: it
// builds authenticated requests, classifies responses into the error
// taxonomy, transparently retries rate-limited requests, and aggregates
// paginated results.
type Client struct {
	client    *http.Client
	auth      TokenProvider
	BaseURL   *url.URL
	UserAgent string
	logger    *slog.Logger
	limiter   *rate.Limiter
}

// NewClient returns a new pipeline client. If a nil httpClient is provided,
// http.DefaultClient is used.
func NewClient(httpClient *http.Client, auth TokenProvider, baseURL, userAgent string, rateCfg *RateLimitConfig, logger *slog.Logger) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	if rateCfg == nil {
		rateCfg = &RateLimitConfig{}
	}

	return &Client{
		client:    httpClient,
		auth:      auth,
		BaseURL:   parsed,
		UserAgent: userAgent,
		logger:    logger,
		limiter:   buildLimiter(*rateCfg),
	}, nil
}

func buildLimiter(cfg RateLimitConfig) *rate.Limiter {
	requestsPerMinute := cfg.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = defaultRequestsPerMinute
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultRateLimitBurst
	}

	limitPerSecond := rate.Limit(requestsPerMinute / secondsPerMinute)
	if limitPerSecond <= 0 {
		limitPerSecond = rate.Limit(1)
	}

	return rate.NewLimiter(limitPerSecond, burst)
}

// NewRequest creates an API request resolved against the client's base URL,
// with the Authorization header populated from the token provider. If token
// acquisition fails, the request is never built and no network call is made.
func (c *Client) NewRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	token, err := c.auth.Token(ctx)
	if err != nil {
		return nil, err
	}

	u, err := c.BaseURL.Parse(path)
	if err != nil {
		return nil, &sgerrors.TransportError{Err: err}
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &sgerrors.TransportError{Err: fmt.Errorf("failed to marshal request body: %w", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, &sgerrors.TransportError{Err: err}
	}

	req.Header.Set("Authorization", token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// Do sends an API request and decodes the 2xx response body into v, which
// may be nil for calls without a meaningful response. Non-2xx statuses map to
// the error taxonomy; 429 responses are retried in place after the delay the
// server asked for, invisibly to the caller, until the retry budget runs out.
func (c *Client) Do(req *http.Request, v any) error {
	ctx := req.Context()

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return &sgerrors.TransportError{Err: err}
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return &sgerrors.TransportError{Err: err}
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return &sgerrors.TransportError{Err: fmt.Errorf("failed to read response body: %w", err)}
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if v == nil || len(body) == 0 {
				return nil
			}
			if err := json.Unmarshal(body, v); err != nil {
				c.logger.ErrorContext(ctx, "failed to decode response body",
					"url", req.URL.String(), "payload", string(body), "err", err)
				return &sgerrors.DecodeError{Operation: req.Method + " " + req.URL.Path, Body: string(body), Err: err}
			}
			return nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt+1 >= maxRateLimitRetries {
				return &sgerrors.APIError{
					Kind:       sgerrors.KindRateLimited,
					StatusCode: resp.StatusCode,
					Body:       string(body),
				}
			}

			delay := retryAfter(resp.Header)
			c.logger.DebugContext(ctx, "rate limited, retrying",
				"url", req.URL.String(), "delay", delay, "attempt", attempt+1)

			if err := sleep(ctx, delay); err != nil {
				return &sgerrors.TransportError{Err: err}
			}

			req, err = cloneRequest(req)
			if err != nil {
				return &sgerrors.TransportError{Err: err}
			}
			continue
		}

		return &sgerrors.APIError{
			Kind:       sgerrors.KindFromStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
}

// retryAfter extracts the server-specified delay from a 429 response,
// falling back to defaultRetryAfter when the header is missing or malformed.
func retryAfter(h http.Header) time.Duration {
	value := h.Get("Retry-After")
	if value == "" {
		return defaultRetryAfter
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds * float64(time.Second))
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// cloneRequest produces a resendable copy of req with a fresh body.
func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		clone.Body = body
	}
	return clone, nil
}

// ListPage fetches one page of a list endpoint. The envelope's resourceKey
// field is decoded into items; the returned token is empty on the last page.
func ListPage[T any](ctx context.Context, c *Client, path string, query url.Values, resourceKey, pageToken string) ([]T, string, error) {
	q := url.Values{}
	for k, vs := range query {
		q[k] = vs
	}
	if q.Get("page_size") == "" {
		q.Set("page_size", strconv.Itoa(DefaultPageSize))
	}
	if pageToken != "" {
		q.Set("page_token", pageToken)
	}

	req, err := c.NewRequest(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return nil, "", err
	}

	var envelope map[string]json.RawMessage
	if err := c.Do(req, &envelope); err != nil {
		return nil, "", err
	}

	var next string
	if raw, ok := envelope[nextPageTokenKey]; ok {
		if err := json.Unmarshal(raw, &next); err != nil {
			return nil, "", &sgerrors.DecodeError{Operation: "list " + path, Body: string(raw), Err: err}
		}
	}

	var items []T
	if raw, ok := envelope[resourceKey]; ok {
		if err := json.Unmarshal(raw, &items); err != nil {
			c.logger.ErrorContext(ctx, "failed to decode list page",
				"path", path, "key", resourceKey, "payload", string(raw), "err", err)
			return nil, "", &sgerrors.DecodeError{Operation: "list " + path, Body: string(raw), Err: err}
		}
	}

	return items, next, nil
}

// List aggregates every page of a list endpoint into one slice, preserving
// page order. The loop is iterative, so arbitrarily long collections do not
// grow the stack.
func List[T any](ctx context.Context, c *Client, path string, query url.Values, resourceKey string) ([]T, error) {
	var out []T
	pageToken := ""

	for {
		items, next, err := ListPage[T](ctx, c, path, query, resourceKey, pageToken)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if next == "" {
			return out, nil
		}
		pageToken = next
	}
}
