package recker

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/forattini-dev/recker/internal/auth"
	"github.com/forattini-dev/recker/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Retry.MaxAttempts = 1
	c, err := New(cfg, opts...)
	require.NoError(t, err)
	return c
}

func TestClientGetDecodesJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"id":7}`))
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	type payload struct {
		OK bool `json:"ok"`
		ID int  `json:"id"`
	}
	out, err := JSON[payload](c.Get("/widgets/7"))
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, 7, out.ID)
}

func TestClientThrowsHTTPErrorOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	_, err := c.Get("/missing").Response()
	require.Error(t, err)
}

func TestClientCookiesPersistAcrossRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		case "/profile":
			_, _ = w.Write([]byte(r.Header.Get("Cookie")))
		}
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	_, err := c.Post("/login").Response()
	require.NoError(t, err)

	body, err := c.Get("/profile").Text()
	require.NoError(t, err)
	assert.Contains(t, body, "session=abc")
}

func TestClientDedupCoalescesConcurrentGETs(t *testing.T) {
	var dispatches int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&dispatches, 1)
		_, _ = w.Write([]byte("shared"))
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	results := make(chan string, 3)
	for i := 0; i < 3; i++ {
		go func() {
			text, err := c.Get("/shared").Text()
			require.NoError(t, err)
			results <- text
		}()
	}
	for i := 0; i < 3; i++ {
		assert.Equal(t, "shared", <-results)
	}
}

func TestClientAuthAttachesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer server.Close()

	c := testClient(t, server.URL, WithAuth(auth.NewBearer("tok123")))
	_, err := c.Get("/").Response()
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok123", gotAuth)
}

func TestClientBatchPreservesOrderAndStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	specs := []RequestSpec{
		{Method: "GET", Path: "/a"},
		{Method: "GET", Path: "/fail"},
		{Method: "GET", Path: "/c"},
	}
	results, stats := c.Batch(specs, BatchOptions{Concurrency: 2})
	require.Len(t, results, 3)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Successful)
	assert.Equal(t, 1, stats.Failed)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
}

func TestRequestHandleCancelAbortsBeforeDispatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	handle := c.Get("/")
	handle.Cancel()
	_, err := handle.Response()
	require.Error(t, err)
}
