package recker

import (
	"context"
	"io"
	"sync"

	"github.com/forattini-dev/recker/internal/decode"
	"github.com/forattini-dev/recker/internal/reckerr"
	"github.com/forattini-dev/recker/internal/recker"
)

// RequestHandle is a lazy, single-shot request: the pipeline runs on the
// first call to Response, Text, Bytes, JSON (the package-level generic
// function), SSE, Stream, or Download, and every later call replays the
// same memoized result rather than dispatching again.
type RequestHandle struct {
	client *Client
	req    *recker.Request
	cancel context.CancelFunc

	// preErr is set when the request could not even be built (e.g. an
	// invalid path), short-circuiting Response before the pipeline runs.
	preErr error

	once sync.Once
	resp *recker.Response
	err  error
}

func newHandle(c *Client, req *recker.Request) *RequestHandle {
	ctx, cancel := context.WithCancel(req.Context())
	return &RequestHandle{client: c, req: req.WithContext(ctx), cancel: cancel}
}

// Cancel aborts the in-flight or not-yet-started request. Idempotent; a
// no-op when the handle never reached a valid request.
func (h *RequestHandle) Cancel() {
	if h.cancel != nil {
		h.cancel()
	}
}

// Response runs the pipeline (once) and returns the raw Response,
// surfacing an HttpError when the status is outside 2xx and the request
// was built with ThrowOnHTTPError.
func (h *RequestHandle) Response() (*recker.Response, error) {
	if h.preErr != nil {
		return nil, h.preErr
	}
	h.once.Do(func() {
		h.resp, h.err = h.client.pipeline(h.req)
	})
	if h.err != nil {
		return h.resp, h.err
	}
	if h.resp != nil && h.req.ThrowOnHTTPError && !h.resp.OK() {
		return h.resp, reckerr.NewHTTP(h.resp)
	}
	return h.resp, nil
}

// Text decodes the body as UTF-8 text.
func (h *RequestHandle) Text() (string, error) {
	body, err := h.openBody()
	if err != nil {
		return "", err
	}
	return decode.Text(body)
}

// Bytes reads the entire body.
func (h *RequestHandle) Bytes() ([]byte, error) {
	body, err := h.openBody()
	if err != nil {
		return nil, err
	}
	return decode.Bytes(body)
}

// SSE streams Server-Sent Events from the body, invoking handle per
// event until the body ends or handle returns an error.
func (h *RequestHandle) SSE(handle decode.SSEHandler) error {
	body, err := h.openBody()
	if err != nil {
		return err
	}
	return decode.SSE(body, handle)
}

// Stream returns the raw body as a lazy byte reader, the async
// byte-iteration surface: callers Read it in a loop rather than
// buffering the whole response.
func (h *RequestHandle) Stream() (io.Reader, error) {
	body, err := h.openBody()
	if err != nil {
		return nil, err
	}
	return decode.Stream(body), nil
}

// Download copies the body into w, driving any OnDownloadProgress
// callback the request was built with.
func (h *RequestHandle) Download(w io.Writer) (int64, error) {
	body, err := h.openBody()
	if err != nil {
		return 0, err
	}
	return io.Copy(w, body)
}

// openBody returns the body even when Response errored with HttpError,
// so callers can still decode an error response's payload; any other
// error (one with no Response attached) short-circuits here.
func (h *RequestHandle) openBody() (io.ReadCloser, error) {
	resp, err := h.Response()
	if resp == nil {
		return nil, err
	}
	return resp.Body()
}

// JSON decodes the body as T. A package-level function because Go methods
// cannot carry their own type parameters.
func JSON[T any](h *RequestHandle) (T, error) {
	var out T
	body, err := h.openBody()
	if err != nil {
		return out, err
	}
	if decErr := decode.JSON(body, &out); decErr != nil {
		return out, decErr
	}
	return out, nil
}
