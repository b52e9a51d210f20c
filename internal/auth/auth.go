// Package auth implements the pluggable authentication strategies of the
// request pipeline: static basic/bearer credentials, RFC 7616 digest
// challenge-response, OAuth2 client-credentials token refresh, and AWS
// SigV4 request signing. Every strategy is a Provider that decorates an
// outgoing request and, where it supports it, reacts to a 401 by
// refreshing its credential and asking the engine to replay once.
package auth

import (
	"context"

	"github.com/forattini-dev/recker/internal/recker"
)

// Provider authenticates an outgoing request in place. Implementations
// must be safe for concurrent use; the engine invokes the same Provider
// instance across all in-flight requests sharing a client.
type Provider interface {
	// Authorize decorates req with whatever headers/query parameters this
	// strategy requires, returning the decorated request.
	Authorize(ctx context.Context, req *recker.Request) (*recker.Request, error)

	// HandleUnauthorized is called when a request authorized by this
	// Provider comes back 401. It returns true if it refreshed its
	// credential and the caller should retry once with a freshly
	// Authorize()'d request.
	HandleUnauthorized(ctx context.Context, resp *recker.Response) (bool, error)
}

// staticProvider is the base for strategies with no refresh behavior
// (basic, bearer, raw API key).
type staticProvider struct{}

func (staticProvider) HandleUnauthorized(context.Context, *recker.Response) (bool, error) {
	return false, nil
}
