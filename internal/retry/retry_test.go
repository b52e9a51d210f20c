package retry

import (
	"net/url"
	"testing"
	"time"

	"github.com/forattini-dev/recker/internal/middleware"
	"github.com/forattini-dev/recker/internal/recker"
	"github.com/forattini-dev/recker/internal/reckerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestDispatchRetriesRetriableStatusThenSucceeds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Delay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	engine := New(cfg, nil)

	calls := 0
	next := middleware.Next(func(req *recker.Request) (*recker.Response, error) {
		calls++
		if calls < 3 {
			return recker.NewResponse(503, "Unavailable", recker.Headers{}, nil, nil), nil
		}
		return recker.NewResponse(200, "OK", recker.Headers{}, nil, nil), nil
	})

	req := recker.NewRequest(recker.MethodGet, mustURL(t, "https://example.com"))
	resp, err := engine.Dispatch(req, next)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, 3, calls)
}

func TestDispatchEmitsRetryAttemptHeaderWhenOptedIn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Delay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	engine := New(cfg, nil)

	var seenAttempts []string
	next := middleware.Next(func(req *recker.Request) (*recker.Response, error) {
		seenAttempts = append(seenAttempts, req.Headers.Get("X-Retry-Attempt"))
		if len(seenAttempts) < 3 {
			return recker.NewResponse(503, "Unavailable", recker.Headers{}, nil, nil), nil
		}
		return recker.NewResponse(200, "OK", recker.Headers{}, nil, nil), nil
	})

	req := recker.NewRequest(recker.MethodGet, mustURL(t, "https://example.com"))
	req.EmitRetryAttemptHeader = true
	resp, err := engine.Dispatch(req, next)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, []string{"", "2", "3"}, seenAttempts)
}

func TestDispatchStopsAfterMaxAttempts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 2
	cfg.Delay = time.Millisecond
	engine := New(cfg, nil)

	calls := 0
	next := middleware.Next(func(req *recker.Request) (*recker.Response, error) {
		calls++
		return recker.NewResponse(500, "Error", recker.Headers{}, nil, nil), nil
	})

	req := recker.NewRequest(recker.MethodGet, mustURL(t, "https://example.com"))
	resp, err := engine.Dispatch(req, next)
	require.NoError(t, err)
	assert.Equal(t, 500, resp.Status)
	assert.Equal(t, 2, calls)
}

func TestDispatchDoesNotRetryNonIdempotentPostByDefault(t *testing.T) {
	cfg := DefaultConfig()
	engine := New(cfg, nil)

	calls := 0
	next := middleware.Next(func(req *recker.Request) (*recker.Response, error) {
		calls++
		return recker.NewResponse(503, "Unavailable", recker.Headers{}, nil, nil), nil
	})

	req := recker.NewRequest(recker.MethodPost, mustURL(t, "https://example.com"))
	resp, err := engine.Dispatch(req, next)
	require.NoError(t, err)
	assert.Equal(t, 503, resp.Status)
	assert.Equal(t, 1, calls)
}

func TestDispatchFailsNonReplayableBodyOnRetry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Delay = time.Millisecond
	engine := New(cfg, nil)

	next := middleware.Next(func(req *recker.Request) (*recker.Response, error) {
		return recker.NewResponse(503, "Unavailable", recker.Headers{}, nil, nil), nil
	})

	req := recker.NewRequest(recker.MethodPut, mustURL(t, "https://example.com")).WithBody(recker.BodyFromReader(nil))
	_, err := engine.Dispatch(req, next)
	require.Error(t, err)
	assert.ErrorIs(t, err, reckerr.ErrNonReplayableBody)
}

func TestRetryAfterOverridesComputedDelay(t *testing.T) {
	resp := recker.NewResponse(429, "Too Many", recker.NewHeaders("Retry-After", "0"), nil, nil)
	d, ok := retryAfterDelay(resp)
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), d)
}
