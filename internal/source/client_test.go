package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return &Client{BaseDelay: time.Millisecond}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	resp, err := testClient().Get(context.Background(), srv.URL, "", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "ok", string(resp.Body))
	assert.EqualValues(t, 3, calls.Load())
}

func TestClientReturnsLastStatusAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient()
	c.Attempts = 2
	resp, err := c.Get(context.Background(), srv.URL, "", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
	assert.EqualValues(t, 2, calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	resp, err := testClient().Get(context.Background(), srv.URL, "", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClientSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Contains(t, r.Header.Get("User-Agent"), "skillkit/")
	}))
	defer srv.Close()

	_, err := testClient().Get(context.Background(), srv.URL, "secret", http.Header{"Accept": {"application/json"}})
	require.NoError(t, err)
}

func TestClientHonoursCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &Client{BaseDelay: time.Hour}
	_, err := c.Get(ctx, srv.URL, "", nil)
	require.Error(t, err)
}

func TestRetryAfterIsCapped(t *testing.T) {
	c := testClient()
	assert.Equal(t, 10*time.Second, c.retryAfter("120", 0))
	assert.Equal(t, 2*time.Second, c.retryAfter("2", 0))
	assert.Equal(t, 4*time.Millisecond, c.retryAfter("soon", 2))
}
