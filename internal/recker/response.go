package recker

import (
	"bytes"
	"io"
	"net/url"
	"sync"

	"github.com/forattini-dev/recker/internal/reckerr"
)

// Response is a single-consumer stream-backed HTTP response. Body is
// read exactly once unless Clone is called before any read.
type Response struct {
	Status     int
	StatusText string
	Headers    Headers
	FinalURL   *url.URL

	// Raw exposes the underlying transport handle for advanced consumers.
	Raw any

	Attempt int // retry attempt that produced this response, 1-indexed

	mu        sync.Mutex
	body      io.ReadCloser
	bodyUsed  bool
	cloned    bool
}

// NewResponse constructs a Response over a lazy body reader.
func NewResponse(status int, statusText string, headers Headers, finalURL *url.URL, body io.ReadCloser) *Response {
	return &Response{
		Status:     status,
		StatusText: statusText,
		Headers:    headers,
		FinalURL:   finalURL,
		body:       body,
	}
}

// StatusCode implements reckerr.Responder.
func (r *Response) StatusCode() int { return r.Status }

// OK reports whether Status is in [200,300).
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// BodyUsed reports whether the body stream has been consumed or handed
// out already.
func (r *Response) BodyUsed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bodyUsed
}

// Body returns the raw body reader for one consumption. Calling it twice
// (without an intervening Clone) returns ErrBodyAlreadyConsumed.
func (r *Response) Body() (io.ReadCloser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bodyUsed {
		return nil, reckerr.ErrBodyAlreadyConsumed
	}
	r.bodyUsed = true
	if r.body == nil {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return r.body, nil
}

// Clone reads the body into memory once and hands both the receiver and
// the returned Response an independent bytes.Reader over it. Legal only
// before any read has happened. Buffering (rather than teeing through a
// pair of pipes) is deliberate: callers routinely consume one branch
// synchronously while holding the other for later, and two unbuffered
// pipes fed by a single writer deadlock the instant one side isn't
// being drained concurrently with the other.
func (r *Response) Clone() (*Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bodyUsed {
		return nil, reckerr.ErrBodyAlreadyConsumed
	}

	headersCopy := r.Headers.Clone()
	if r.body == nil {
		twin := NewResponse(r.Status, r.StatusText, headersCopy, r.FinalURL, io.NopCloser(bytes.NewReader(nil)))
		return twin, nil
	}

	buf, err := io.ReadAll(r.body)
	r.body.Close()
	if err != nil {
		return nil, err
	}

	r.cloned = true
	r.body = io.NopCloser(bytes.NewReader(buf))

	twin := NewResponse(r.Status, r.StatusText, headersCopy, r.FinalURL, io.NopCloser(bytes.NewReader(buf)))
	return twin, nil
}

// Discard drains and closes the body without handing it to a decoder, used
// by the retry/redirect engines before replaying a request.
func (r *Response) Discard() {
	r.mu.Lock()
	body := r.body
	used := r.bodyUsed
	r.bodyUsed = true
	r.mu.Unlock()
	if body == nil || used {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
