package recker

import (
	"context"
	"net/url"
	"time"
)

// Method is an HTTP method restricted to a known, safe-to-dispatch set.
type Method string

const (
	MethodGet     Method = "GET"
	MethodHead    Method = "HEAD"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodOptions Method = "OPTIONS"
	MethodTrace   Method = "TRACE"
)

// Timeouts groups the whole-request / connect / response-start /
// between-bytes timeouts allowed per request.
type Timeouts struct {
	Whole         time.Duration
	Connect       time.Duration
	ResponseStart time.Duration
	BetweenBytes  time.Duration
}

// RedirectInfo is handed to a BeforeRedirect hook.
type RedirectInfo struct {
	From    *url.URL
	To      *url.URL
	Status  int
	Headers Headers
}

// BeforeRedirectFunc inspects a pending redirect hop. Returning ok=false
// aborts with RedirectRejected; a non-empty replacement URL retargets
// the hop.
type BeforeRedirectFunc func(info RedirectInfo) (proceed bool, replacementURL string)

// ProgressEvent is emitted by upload/download progress callbacks.
type ProgressEvent struct {
	Loaded      int64
	Total       int64 // 0 when unknown
	Percent     float64
	Rate        float64 // bytes/sec, EWMA smoothed
	ETA         time.Duration
	Direction   string // "upload" | "download"
	Final       bool
}

// ProgressFunc receives progress events.
type ProgressFunc func(ProgressEvent)

// Request is an immutable description of one HTTP request. Every With*
// method returns a shallow copy with the named field replaced; no method
// mutates the receiver.
type Request struct {
	Method  Method
	URL     *url.URL
	Headers Headers
	Body    Body

	ThrowOnHTTPError bool
	Timeouts         Timeouts
	MaxResponseBytes int64

	FollowRedirects bool
	MaxRedirects    int
	BeforeRedirect  BeforeRedirectFunc

	// EmitRetryAttemptHeader opts into carrying X-Retry-Attempt (starting
	// at 1) on every attempt after the first.
	EmitRetryAttemptHeader bool

	OnUploadProgress   ProgressFunc
	OnDownloadProgress ProgressFunc

	HTTP2Preferred bool

	ctx context.Context
}

// NewRequest builds a Request with sensible defaults: method GET,
// ThrowOnHTTPError true, FollowRedirects true, MaxRedirects 5.
func NewRequest(method Method, u *url.URL) *Request {
	if method == "" {
		method = MethodGet
	}
	return &Request{
		Method:           method,
		URL:              u,
		ThrowOnHTTPError: true,
		FollowRedirects:  true,
		MaxRedirects:     5,
		ctx:              context.Background(),
	}
}

// Context returns the request's cancellation/deadline context.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// clone returns a shallow value copy; callers mutate only fields that
// are themselves copy-on-write (Headers.Clone, a new *url.URL, etc).
func (r *Request) clone() *Request {
	cp := *r
	return &cp
}

// WithContext returns a copy bound to ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	cp := r.clone()
	cp.ctx = ctx
	return cp
}

// WithHeader returns a copy with name set to value (replacing any
// existing values); calling it twice with the same name and value behaves
// identically to calling it once.
func (r *Request) WithHeader(name, value string) *Request {
	cp := r.clone()
	cp.Headers = r.Headers.Clone()
	cp.Headers.Set(name, value)
	return cp
}

// WithBody returns a copy carrying a new body.
func (r *Request) WithBody(b Body) *Request {
	cp := r.clone()
	cp.Body = b
	return cp
}

// WithURL returns a copy targeting a different URL (used by the redirect
// engine to rebuild the request for the next hop).
func (r *Request) WithURL(u *url.URL) *Request {
	cp := r.clone()
	cp.URL = u
	return cp
}

// WithMethod returns a copy using a different method (redirect reshaping).
func (r *Request) WithMethod(m Method) *Request {
	cp := r.clone()
	cp.Method = m
	return cp
}

// WithHeaders returns a copy with an entirely new header set.
func (r *Request) WithHeaders(h Headers) *Request {
	cp := r.clone()
	cp.Headers = h
	return cp
}

// IsIdempotent reports whether the method is considered safe to retry or
// dedup without an explicit opt-in predicate.
func (r *Request) IsIdempotent() bool {
	switch r.Method {
	case MethodGet, MethodHead, MethodPut, MethodDelete, MethodOptions:
		return true
	default:
		return false
	}
}

// IsDedupable reports whether the method participates in dedup
// coalescing: GET, HEAD, OPTIONS only.
func (r *Request) IsDedupable() bool {
	switch r.Method {
	case MethodGet, MethodHead, MethodOptions:
		return true
	default:
		return false
	}
}
