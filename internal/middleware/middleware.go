// Package middleware defines the onion-style pipeline contract every
// request-execution stage (dedup, cache, cookie jar, auth, retry, redirect,
// progress) implements, and folds a stage list into a single callable.
package middleware

import (
	"github.com/forattini-dev/recker/internal/recker"
)

// Next invokes the remainder of the pipeline for req.
type Next func(req *recker.Request) (*recker.Response, error)

// Middleware may transform the request before calling next, synthesize a
// response without calling next (a cache hit, a dedup join), or transform
// the response next returns. It must call next at most once.
type Middleware func(req *recker.Request, next Next) (*recker.Response, error)

// Chain folds middlewares outer-to-inner around terminal, so middlewares[0]
// is the outermost wrapper. The client assembles these in the order Dedup,
// Cache, Auth, user-supplied, Retry, Redirect, Cookie, with the scheduler
// wrapping the transport as terminal; Cookie sits innermost so it runs once
// per redirect hop rather than once per top-level request. Upload/download
// progress is handled inside the transport directly, not as a pipeline
// stage.
func Chain(terminal Next, middlewares ...Middleware) Next {
	next := terminal
	for i := len(middlewares) - 1; i >= 0; i-- {
		mw := middlewares[i]
		prev := next
		next = func(req *recker.Request) (*recker.Response, error) {
			return mw(req, prev)
		}
	}
	return next
}
