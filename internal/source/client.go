package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"skillkit/internal/config"
)

const defaultAttempts = 5

// Client is the shared HTTP GET helper used by remote fetchers and
// discovery providers. It retries network errors, 429 and 5xx responses
// with exponential backoff and honours Retry-After (capped at 10s).
type Client struct {
	HTTP      *http.Client
	UserAgent string
	// Attempts defaults to 5.
	Attempts int
	// BaseDelay is the first backoff step; it doubles per attempt.
	// Defaults to 500ms.
	BaseDelay time.Duration
}

// NewClient returns a client using httpClient, or http.DefaultClient when nil.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{HTTP: httpClient}
}

// Response is a fully-read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Get fetches url. A non-empty token is sent as a bearer Authorization
// header. Non-2xx statuses are returned, not treated as errors.
func (c *Client) Get(ctx context.Context, url, token string, header http.Header) (Response, error) {
	attempts := c.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return Response{}, fmt.Errorf("SRC_HTTP: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent())
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := c.httpClient().Do(req)
		if err != nil {
			lastErr = err
			if i == attempts-1 {
				break
			}
			if err := c.sleep(ctx, c.backoff(i)); err != nil {
				return Response{}, err
			}
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return Response{}, fmt.Errorf("SRC_HTTP: %w", readErr)
		}
		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) && i < attempts-1 {
			if err := c.sleep(ctx, c.retryAfter(resp.Header.Get("Retry-After"), i)); err != nil {
				return Response{}, err
			}
			continue
		}
		return Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
	}
	if lastErr != nil {
		return Response{}, fmt.Errorf("SRC_HTTP: %w", lastErr)
	}
	return Response{}, errors.New("SRC_HTTP: request failed")
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

func (c *Client) userAgent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return "skillkit/" + config.Version
}

func (c *Client) backoff(attempt int) time.Duration {
	base := c.BaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	return time.Duration(1<<attempt) * base
}

func (c *Client) retryAfter(value string, attempt int) time.Duration {
	if value == "" {
		return c.backoff(attempt)
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return c.backoff(attempt)
	}
	if secs > 10 {
		secs = 10
	}
	return time.Duration(secs) * time.Second
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
