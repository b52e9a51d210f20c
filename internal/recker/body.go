package recker

import (
	"bytes"
	"io"
	"net/url"
	"strings"
)

// BodyKind classifies a Request body: absent, byte sequence, text, form,
// multipart, lazy stream, or serializable value.
type BodyKind int

const (
	BodyAbsent BodyKind = iota
	BodyBytes
	BodyText
	BodyForm
	BodyMultipart
	BodyJSON
	BodyStream
)

// MultipartPart is one field of a multipart/form-data body.
type MultipartPart struct {
	Name     string
	Filename string // empty for plain fields
	Content  []byte
	MIME     string
}

// Body describes a Request payload. A Body is replayable when Open can be
// called more than once and produce identical bytes each time;
// StreamFactory's presence is what makes a BodyStream body replayable (a
// single bare io.Reader is not).
type Body struct {
	Kind BodyKind

	Bytes     []byte
	Text      string
	Form      url.Values
	Multipart []MultipartPart
	JSON      any

	// Stream is the body content for BodyStream when there is no
	// StreamFactory — usable exactly once.
	Stream io.Reader
	// StreamFactory, when set, lets BodyStream be replayed by calling it
	// again for a fresh reader, the caller-supplied replayable source a
	// retry needs.
	StreamFactory func() (io.ReadCloser, error)

	// ContentType overrides the Content-Type inferred from Kind.
	ContentType string
}

// BodyFromBytes builds a replayable byte-sequence body.
func BodyFromBytes(b []byte) Body { return Body{Kind: BodyBytes, Bytes: b} }

// BodyFromText builds a replayable text body.
func BodyFromText(s string) Body { return Body{Kind: BodyText, Text: s} }

// BodyFromForm builds a replayable application/x-www-form-urlencoded body.
func BodyFromForm(v url.Values) Body { return Body{Kind: BodyForm, Form: v} }

// BodyFromJSON marshals v lazily at dispatch time; replayable since the
// value is re-marshaled identically on every Open call.
func BodyFromJSON(v any) Body { return Body{Kind: BodyJSON, JSON: v} }

// BodyFromReader wraps a single-pass reader — not replayable.
func BodyFromReader(r io.Reader) Body { return Body{Kind: BodyStream, Stream: r} }

// BodyFromFactory wraps a replayable stream source.
func BodyFromFactory(f func() (io.ReadCloser, error)) Body {
	return Body{Kind: BodyStream, StreamFactory: f}
}

// Replayable reports whether Open can be called more than once.
func (b Body) Replayable() bool {
	switch b.Kind {
	case BodyAbsent, BodyBytes, BodyText, BodyForm, BodyJSON:
		return true
	case BodyMultipart:
		return true
	case BodyStream:
		return b.StreamFactory != nil
	default:
		return false
	}
}

// Open materializes the body into an io.ReadCloser plus its Content-Type,
// suitable for one transport dispatch. Callers that need to retry must
// call Open again rather than reuse the returned reader.
func (b Body) Open() (io.ReadCloser, string, error) {
	ct := b.ContentType
	switch b.Kind {
	case BodyAbsent:
		return nil, "", nil
	case BodyBytes:
		if ct == "" {
			ct = "application/octet-stream"
		}
		return io.NopCloser(bytes.NewReader(b.Bytes)), ct, nil
	case BodyText:
		if ct == "" {
			ct = "text/plain; charset=utf-8"
		}
		return io.NopCloser(strings.NewReader(b.Text)), ct, nil
	case BodyForm:
		if ct == "" {
			ct = "application/x-www-form-urlencoded"
		}
		return io.NopCloser(strings.NewReader(b.Form.Encode())), ct, nil
	case BodyJSON:
		if ct == "" {
			ct = "application/json"
		}
		data, err := marshalJSON(b.JSON)
		if err != nil {
			return nil, "", err
		}
		return io.NopCloser(bytes.NewReader(data)), ct, nil
	case BodyMultipart:
		data, boundary, err := encodeMultipart(b.Multipart)
		if err != nil {
			return nil, "", err
		}
		if ct == "" {
			ct = "multipart/form-data; boundary=" + boundary
		}
		return io.NopCloser(bytes.NewReader(data)), ct, nil
	case BodyStream:
		if b.StreamFactory != nil {
			rc, err := b.StreamFactory()
			return rc, ct, err
		}
		if b.Stream == nil {
			return nil, ct, nil
		}
		if rc, ok := b.Stream.(io.ReadCloser); ok {
			return rc, ct, nil
		}
		return io.NopCloser(b.Stream), ct, nil
	default:
		return nil, ct, nil
	}
}
