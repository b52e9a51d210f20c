// Package decode applies content-encoding decompression and then a typed
// body decoder (JSON, text, bytes, SSE, raw stream) over a response body.
package decode

import (
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// Decompress wraps body with the reader matching contentEncoding
// ("gzip", "deflate", "br", "" or "identity"). The caller remains
// responsible for closing the returned ReadCloser.
func Decompress(body io.ReadCloser, contentEncoding string) (io.ReadCloser, error) {
	switch contentEncoding {
	case "", "identity":
		return body, nil
	case "gzip":
		gr, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("decode: gzip: %w", err)
		}
		return &joinCloser{Reader: gr, closers: []io.Closer{gr, body}}, nil
	case "deflate":
		fr := flate.NewReader(body)
		return &joinCloser{Reader: fr, closers: []io.Closer{fr, body}}, nil
	case "br":
		br := brotli.NewReader(body)
		return &joinCloser{Reader: br, closers: []io.Closer{body}}, nil
	default:
		return nil, fmt.Errorf("decode: unsupported content-encoding %q", contentEncoding)
	}
}

// joinCloser adapts a plain io.Reader decompressor (brotli.Reader has no
// Close) alongside the underlying body so both get released.
type joinCloser struct {
	io.Reader
	closers []io.Closer
}

func (j *joinCloser) Close() error {
	var firstErr error
	for _, c := range j.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
