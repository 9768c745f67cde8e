package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/orunio/climate/backend/pkg/logger"
	"github.com/orunio/climate/backend/pkg/redis"
)

// maxBodyBytes caps how much of a provider response is buffered
const maxBodyBytes = 16 << 20

// Client is an HTTP client wrapper with logging and optional shared rate limiting.
// It never retries; a failed request is reported once to the caller.
// ⭐ SSOT: 모든 외부 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient  *http.Client
	logger      *logger.Logger
	rateLimiter *redis.RateLimiter
	userAgent   string
}

// Request describes one outbound call
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// RateLimitKey selects a shared redis limit (see redis.RateLimitFor)
	RateLimitKey string
}

// Response is a fully buffered HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// New creates a new HTTP client.
// Deadlines come from the request context, not from http.Client.Timeout.
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				MaxIdleConns:          50,
				MaxConnsPerHost:       8,
				IdleConnTimeout:       90 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger:    log,
		userAgent: "orun-climate/1.0",
	}
}

// WithHTTPClient replaces the underlying http.Client (tests, custom transports)
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithRateLimiter sets the shared rate limiter for this client
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter) *Client {
	c.rateLimiter = limiter
	return c
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: url, Header: header})
}

// PostJSON performs a POST request with a JSON body
func (c *Client) PostJSON(ctx context.Context, url string, header http.Header, data interface{}) (*Response, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Content-Type", "application/json")

	return c.Do(ctx, Request{Method: http.MethodPost, URL: url, Header: h, Body: body})
}

// Do executes the request once and buffers the body.
// Non-2xx statuses are not errors; only transport failures are.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	if c.rateLimiter != nil && r.RateLimitKey != "" {
		if limit, ok := redis.RateLimitFor(r.RateLimitKey); ok {
			if err := c.rateLimiter.Wait(ctx, limit); err != nil {
				return nil, fmt.Errorf("rate limit wait failed: %w", err)
			}
		}
	}

	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", r.Method, err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	startTime := time.Now()
	fields := map[string]interface{}{
		"method": r.Method,
		"host":   req.URL.Host,
		"path":   req.URL.Path,
	}

	c.logger.WithFields(fields).Debug("HTTP request started")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithFields(fields).WithError(err).
			WithField("duration", time.Since(startTime).String()).
			Warn("HTTP request failed")
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	duration := time.Since(startTime)
	c.logger.WithFields(fields).WithFields(map[string]interface{}{
		"status_code": resp.StatusCode,
		"duration":    duration.String(),
		"bytes":       len(data),
	}).Debug("HTTP request completed")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Duration:   duration,
	}, nil
}

// IsTimeout reports whether a transport error was a deadline or timeout
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
