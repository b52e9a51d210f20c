package cache

import (
	"io"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forattini-dev/recker/internal/middleware"
	"github.com/forattini-dev/recker/internal/recker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readBody(t *testing.T, resp *recker.Response) string {
	t.Helper()
	body, err := resp.Body()
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	return string(data)
}

func TestMiddlewareTTLHit(t *testing.T) {
	store := NewMemoryStore(10)
	engine := New(Config{Strategy: TTL, TTL: time.Minute}, store, nil)

	var calls int32
	next := middleware.Next(func(req *recker.Request) (*recker.Response, error) {
		atomic.AddInt32(&calls, 1)
		return recker.NewResponse(200, "OK", recker.Headers{}, nil, io.NopCloser(strings.NewReader("fresh"))), nil
	})

	u, _ := url.Parse("https://example.com/x")
	req := recker.NewRequest(recker.MethodGet, u)

	resp1, err := engine.Middleware(req, next)
	require.NoError(t, err)
	assert.Equal(t, "fresh", readBody(t, resp1))

	resp2, err := engine.Middleware(req, next)
	require.NoError(t, err)
	assert.Equal(t, "fresh", readBody(t, resp2))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMiddlewareExpiredTTLRefetches(t *testing.T) {
	store := NewMemoryStore(10)
	engine := New(Config{Strategy: TTL, TTL: time.Millisecond}, store, nil)

	var calls int32
	next := middleware.Next(func(req *recker.Request) (*recker.Response, error) {
		n := atomic.AddInt32(&calls, 1)
		return recker.NewResponse(200, "OK", recker.Headers{}, nil, io.NopCloser(strings.NewReader(string(rune('a'+n))))), nil
	})

	u, _ := url.Parse("https://example.com/x")
	req := recker.NewRequest(recker.MethodGet, u)

	_, err := engine.Middleware(req, next)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = engine.Middleware(req, next)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMiddlewareNoStoreBypassesCache(t *testing.T) {
	store := NewMemoryStore(10)
	engine := New(Config{Strategy: NoStore}, store, nil)

	var calls int32
	next := middleware.Next(func(req *recker.Request) (*recker.Response, error) {
		atomic.AddInt32(&calls, 1)
		return recker.NewResponse(200, "OK", recker.Headers{}, nil, nil), nil
	})

	u, _ := url.Parse("https://example.com/x")
	req := recker.NewRequest(recker.MethodGet, u)
	_, _ = engine.Middleware(req, next)
	_, _ = engine.Middleware(req, next)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMemoryStoreEvictsOldestWhenFull(t *testing.T) {
	store := NewMemoryStore(2)
	store.Put("a", Entry{Status: 200, InsertedAt: time.Now()})
	store.Put("b", Entry{Status: 200, InsertedAt: time.Now()})
	store.Put("c", Entry{Status: 200, InsertedAt: time.Now()})

	_, aFound := store.Get("a")
	_, bFound := store.Get("b")
	_, cFound := store.Get("c")
	assert.False(t, aFound)
	assert.True(t, bFound)
	assert.True(t, cFound)
}
