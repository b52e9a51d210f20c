package recker

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/forattini-dev/recker/internal/logging"
	"github.com/forattini-dev/recker/internal/recker"
	"github.com/google/uuid"
)

// RequestOption customizes one request built by a verb method, applied
// in order after the client's defaults (base URL, default headers,
// default timeout).
type RequestOption func(*recker.Request) *recker.Request

// WithRequestContext binds ctx to the request, the handle to propagate
// an existing deadline/cancellation instead of the background context a
// bare Cancel() creates.
func WithRequestContext(ctx context.Context) RequestOption {
	return func(r *recker.Request) *recker.Request { return r.WithContext(ctx) }
}

// WithRequestHeader sets a single header, replacing any existing value.
func WithRequestHeader(name, value string) RequestOption {
	return func(r *recker.Request) *recker.Request { return r.WithHeader(name, value) }
}

// WithQuery appends a query parameter to the request URL.
func WithQuery(key, value string) RequestOption {
	return func(r *recker.Request) *recker.Request {
		u := *r.URL
		q := u.Query()
		q.Add(key, value)
		u.RawQuery = q.Encode()
		return r.WithURL(&u)
	}
}

// WithJSONBody marshals v lazily at dispatch time.
func WithJSONBody(v any) RequestOption {
	return func(r *recker.Request) *recker.Request { return r.WithBody(recker.BodyFromJSON(v)) }
}

// WithTextBody sets a plain-text body.
func WithTextBody(s string) RequestOption {
	return func(r *recker.Request) *recker.Request { return r.WithBody(recker.BodyFromText(s)) }
}

// WithBytesBody sets a raw byte-sequence body.
func WithBytesBody(b []byte) RequestOption {
	return func(r *recker.Request) *recker.Request { return r.WithBody(recker.BodyFromBytes(b)) }
}

// WithFormBody sets a application/x-www-form-urlencoded body.
func WithFormBody(v url.Values) RequestOption {
	return func(r *recker.Request) *recker.Request { return r.WithBody(recker.BodyFromForm(v)) }
}

// WithStreamBody sets a single-pass, non-replayable body from a factory
// function, replayable only if the factory can be called again — pass a
// StreamFactory-backed recker.Body via WithBody if retry support matters.
func WithStreamBody(b recker.Body) RequestOption {
	return func(r *recker.Request) *recker.Request { return r.WithBody(b) }
}

// WithTimeout sets the whole-request budget.
func WithTimeout(d time.Duration) RequestOption {
	return func(r *recker.Request) *recker.Request {
		r.Timeouts.Whole = d
		return r
	}
}

// WithTimeouts sets every named timeout phase at once.
func WithTimeouts(t recker.Timeouts) RequestOption {
	return func(r *recker.Request) *recker.Request {
		r.Timeouts = t
		return r
	}
}

// WithRetryAttemptHeader opts this request into carrying X-Retry-Attempt
// (starting at 1) on every attempt after the first.
func WithRetryAttemptHeader() RequestOption {
	return func(r *recker.Request) *recker.Request {
		r.EmitRetryAttemptHeader = true
		return r
	}
}

// WithThrowOnHTTPError overrides the client's default HttpError-on-non-2xx
// behavior for this one request.
func WithThrowOnHTTPError(throw bool) RequestOption {
	return func(r *recker.Request) *recker.Request {
		r.ThrowOnHTTPError = throw
		return r
	}
}

// WithoutRedirects disables redirect following for this one request.
func WithoutRedirects() RequestOption {
	return func(r *recker.Request) *recker.Request {
		r.FollowRedirects = false
		return r
	}
}

// WithMaxRedirects overrides the per-request hop budget.
func WithMaxRedirects(n int) RequestOption {
	return func(r *recker.Request) *recker.Request {
		r.MaxRedirects = n
		return r
	}
}

// WithBeforeRedirect installs a hook inspecting every pending redirect
// hop for this one request.
func WithBeforeRedirect(fn recker.BeforeRedirectFunc) RequestOption {
	return func(r *recker.Request) *recker.Request {
		r.BeforeRedirect = fn
		return r
	}
}

// WithUploadProgress installs an upload progress callback for this
// request.
func WithUploadProgress(fn recker.ProgressFunc) RequestOption {
	return func(r *recker.Request) *recker.Request {
		r.OnUploadProgress = fn
		return r
	}
}

// WithDownloadProgress installs a download progress callback for this
// request.
func WithDownloadProgress(fn recker.ProgressFunc) RequestOption {
	return func(r *recker.Request) *recker.Request {
		r.OnDownloadProgress = fn
		return r
	}
}

// buildRequest resolves path against the client's base URL (when path is
// relative), applies default headers and the default request timeout,
// then folds opts in order.
func (c *Client) buildRequest(method recker.Method, path string, opts []RequestOption) (*recker.Request, error) {
	target, err := c.resolveURL(path)
	if err != nil {
		return nil, err
	}

	req := recker.NewRequest(method, target)
	req.ThrowOnHTTPError = c.cfg.ThrowOnHTTPError
	req.FollowRedirects = c.cfg.FollowRedirects
	req.MaxRedirects = c.cfg.MaxRedirects
	if c.cfg.Timeout.Request > 0 {
		req.Timeouts = recker.Timeouts{
			Whole:         c.cfg.Timeout.Request,
			Connect:       c.cfg.Timeout.Connect,
			ResponseStart: c.cfg.Timeout.ResponseStart,
			BetweenBytes:  c.cfg.Timeout.BetweenBytes,
		}
	}

	headers := recker.Headers{}
	for name, value := range c.cfg.Headers {
		headers.Set(name, value)
	}
	req.Headers = headers

	for _, opt := range opts {
		req = opt(req)
	}

	req = req.WithContext(logging.WithRequestID(req.Context(), uuid.NewString()))
	return req, nil
}

func (c *Client) resolveURL(path string) (*url.URL, error) {
	u, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	if u.IsAbs() || c.baseURL == nil {
		return u, nil
	}
	joined := *c.baseURL
	if strings.HasSuffix(joined.Path, "/") && strings.HasPrefix(path, "/") {
		joined.Path += path[1:]
	} else if !strings.HasSuffix(joined.Path, "/") && !strings.HasPrefix(path, "/") {
		joined.Path += "/" + path
	} else {
		joined.Path += path
	}
	joined.RawQuery = u.RawQuery
	joined.Fragment = u.Fragment
	return &joined, nil
}
