package recker

import "github.com/forattini-dev/recker/internal/recker"

// Get issues a GET request and returns a lazy handle.
func (c *Client) Get(path string, opts ...RequestOption) *RequestHandle {
	return c.do(recker.MethodGet, path, opts)
}

// Head issues a HEAD request and returns a lazy handle.
func (c *Client) Head(path string, opts ...RequestOption) *RequestHandle {
	return c.do(recker.MethodHead, path, opts)
}

// Post issues a POST request and returns a lazy handle.
func (c *Client) Post(path string, opts ...RequestOption) *RequestHandle {
	return c.do(recker.MethodPost, path, opts)
}

// Put issues a PUT request and returns a lazy handle.
func (c *Client) Put(path string, opts ...RequestOption) *RequestHandle {
	return c.do(recker.MethodPut, path, opts)
}

// Patch issues a PATCH request and returns a lazy handle.
func (c *Client) Patch(path string, opts ...RequestOption) *RequestHandle {
	return c.do(recker.MethodPatch, path, opts)
}

// Delete issues a DELETE request and returns a lazy handle.
func (c *Client) Delete(path string, opts ...RequestOption) *RequestHandle {
	return c.do(recker.MethodDelete, path, opts)
}

// Options issues an OPTIONS request and returns a lazy handle.
func (c *Client) Options(path string, opts ...RequestOption) *RequestHandle {
	return c.do(recker.MethodOptions, path, opts)
}

func (c *Client) do(method recker.Method, path string, opts []RequestOption) *RequestHandle {
	req, err := c.buildRequest(method, path, opts)
	if err != nil {
		return &RequestHandle{client: c, preErr: err}
	}
	return newHandle(c, req)
}
