package middleware

import (
	"net/url"
	"testing"

	"github.com/forattini-dev/recker/internal/recker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainRunsInRegistrationOrder(t *testing.T) {
	var order []string

	record := func(name string) Middleware {
		return func(req *recker.Request, next Next) (*recker.Response, error) {
			order = append(order, name+":before")
			resp, err := next(req)
			order = append(order, name+":after")
			return resp, err
		}
	}

	u, _ := url.Parse("https://example.com")
	terminal := func(req *recker.Request) (*recker.Response, error) {
		order = append(order, "terminal")
		return recker.NewResponse(200, "OK", recker.Headers{}, nil, nil), nil
	}

	chain := Chain(terminal, record("outer"), record("inner"))
	_, err := chain(recker.NewRequest(recker.MethodGet, u))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"outer:before", "inner:before", "terminal", "inner:after", "outer:after",
	}, order)
}

func TestMiddlewareCanShortCircuit(t *testing.T) {
	u, _ := url.Parse("https://example.com")
	called := false

	shortCircuit := func(req *recker.Request, next Next) (*recker.Response, error) {
		return recker.NewResponse(304, "Not Modified", recker.Headers{}, nil, nil), nil
	}
	terminal := func(req *recker.Request) (*recker.Response, error) {
		called = true
		return nil, nil
	}

	chain := Chain(terminal, shortCircuit)
	resp, err := chain(recker.NewRequest(recker.MethodGet, u))
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, 304, resp.Status)
}
