package dedup

import (
	"io"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forattini-dev/recker/internal/middleware"
	"github.com/forattini-dev/recker/internal/recker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCoalescesConcurrentGETs(t *testing.T) {
	engine := New(nil)
	var calls int32

	next := middleware.Next(func(req *recker.Request) (*recker.Response, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return recker.NewResponse(200, "OK", recker.Headers{}, nil, io.NopCloser(strings.NewReader("payload"))), nil
	})

	u, _ := url.Parse("https://example.com/x")
	req := recker.NewRequest(recker.MethodGet, u)

	var wg sync.WaitGroup
	bodies := make([]string, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			resp, err := engine.Middleware(req, next)
			require.NoError(t, err)
			body, err := resp.Body()
			require.NoError(t, err)
			data, _ := io.ReadAll(body)
			bodies[idx] = string(data)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, b := range bodies {
		assert.Equal(t, "payload", b)
	}
}

func TestMiddlewareBypassesNonDedupableMethods(t *testing.T) {
	engine := New(nil)
	var calls int32
	next := middleware.Next(func(req *recker.Request) (*recker.Response, error) {
		atomic.AddInt32(&calls, 1)
		return recker.NewResponse(200, "OK", recker.Headers{}, nil, nil), nil
	})

	u, _ := url.Parse("https://example.com/x")
	req := recker.NewRequest(recker.MethodPost, u)

	_, _ = engine.Middleware(req, next)
	_, _ = engine.Middleware(req, next)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
