// Package reckerr defines the error taxonomy shared by every component of
// the request-execution pipeline. Components never define their own
// sentinel error types; they wrap or return one of the Kinds below so
// callers can branch with errors.Is/errors.As regardless of which stage
// of the pipeline produced the failure.
package reckerr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure in the request pipeline.
type Kind string

const (
	KindConfig           Kind = "config"
	KindCancelled        Kind = "cancelled"
	KindTimeout          Kind = "timeout"
	KindConnect          Kind = "connect"
	KindDNS              Kind = "dns"
	KindTLS              Kind = "tls"
	KindProtocol         Kind = "protocol"
	KindHTTP             Kind = "http"
	KindTooManyRedirects Kind = "too_many_redirects"
	KindRedirectRejected Kind = "redirect_rejected"
	KindNonReplayable    Kind = "non_replayable_body"
	KindNonReplayableRed Kind = "non_replayable_redirect"
	KindDecode           Kind = "decode"
	KindBodyConsumed     Kind = "body_already_consumed"
	KindAuth             Kind = "auth"
	KindScheduleCancel   Kind = "schedule_cancelled"
	KindUnsupported      Kind = "unsupported"
)

// TimeoutCategory refines a KindTimeout error.
type TimeoutCategory string

const (
	TimeoutWhole         TimeoutCategory = "request"
	TimeoutConnect       TimeoutCategory = "connect"
	TimeoutResponseStart TimeoutCategory = "response-start"
	TimeoutBetweenBytes  TimeoutCategory = "between-bytes"
)

// DecodeKind refines a KindDecode error.
type DecodeKind string

const (
	DecodeJSON DecodeKind = "json"
	DecodeSSE  DecodeKind = "sse"
	DecodeText DecodeKind = "text"
	DecodeGzip DecodeKind = "gzip"
)

// Responder is the minimal surface an HTTP response must expose so an
// HttpError can reference it without importing the recker package
// (which itself depends on reckerr).
type Responder interface {
	StatusCode() int
}

// Error is the single concrete error type returned by every recker
// component. Construct with the New* helpers rather than a literal.
type Error struct {
	Kind     Kind
	Message  string
	Cause    error
	Category TimeoutCategory // set when Kind == KindTimeout
	Decode   DecodeKind      // set when Kind == KindDecode
	Response Responder       // set when Kind == KindHTTP
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("recker: %s: %v", msg, e.Cause)
	}
	return fmt.Sprintf("recker: %s", msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, reckerr.KindX) work by comparing Kinds, so
// callers don't need a distinct sentinel per Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message != "" || t.Cause != nil {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func NewTimeout(category TimeoutCategory, cause error) *Error {
	return &Error{Kind: KindTimeout, Message: "timed out (" + string(category) + ")", Category: category, Cause: cause}
}

func NewDecode(kind DecodeKind, cause error) *Error {
	return &Error{Kind: KindDecode, Message: "decode failed (" + string(kind) + ")", Decode: kind, Cause: cause}
}

func NewHTTP(resp Responder) *Error {
	return &Error{Kind: KindHTTP, Message: fmt.Sprintf("http status %d", resp.StatusCode()), Response: resp}
}

func NewAuth(cause error) *Error {
	return &Error{Kind: KindAuth, Message: "auth failed", Cause: cause}
}

// Sentinel values usable directly with errors.Is. Each carries only a
// Kind, so Error.Is matches any *Error of the same Kind regardless of
// message/cause.
var (
	ErrConfig              = &Error{Kind: KindConfig}
	ErrCancelled           = &Error{Kind: KindCancelled}
	ErrTimeout             = &Error{Kind: KindTimeout}
	ErrConnect             = &Error{Kind: KindConnect}
	ErrDNS                 = &Error{Kind: KindDNS}
	ErrTLS                 = &Error{Kind: KindTLS}
	ErrProtocol            = &Error{Kind: KindProtocol}
	ErrHTTP                = &Error{Kind: KindHTTP}
	ErrTooManyRedirects    = &Error{Kind: KindTooManyRedirects, Message: "too many redirects"}
	ErrRedirectRejected    = &Error{Kind: KindRedirectRejected, Message: "redirect rejected by beforeRedirect hook"}
	ErrNonReplayableBody   = &Error{Kind: KindNonReplayable, Message: "body cannot be replayed for retry"}
	ErrNonReplayableRedir  = &Error{Kind: KindNonReplayableRed, Message: "body cannot be replayed for redirect"}
	ErrDecode              = &Error{Kind: KindDecode}
	ErrBodyAlreadyConsumed = &Error{Kind: KindBodyConsumed, Message: "response body already consumed"}
	ErrAuth                = &Error{Kind: KindAuth}
	ErrScheduleCancelled   = &Error{Kind: KindScheduleCancel, Message: "cancelled while waiting for admission"}
	ErrUnsupported         = &Error{Kind: KindUnsupported}
)

// As is a thin convenience wrapper over errors.As for *Error.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
