// Package redirect implements the redirect engine: 3xx method/body
// reshaping, cross-origin header stripping, hop budget, and the
// beforeRedirect hook.
package redirect

import (
	"net/url"
	"strings"

	"github.com/forattini-dev/recker/internal/logging"
	"github.com/forattini-dev/recker/internal/middleware"
	"github.com/forattini-dev/recker/internal/recker"
	"github.com/forattini-dev/recker/internal/reckerr"
	"go.uber.org/zap"
)

// sensitiveHeaders are stripped on cross-origin hops.
var sensitiveHeaders = []string{"Authorization", "Cookie", "Proxy-Authorization"}

// Engine wraps an inner Next (the scheduler/transport) with redirect
// following.
type Engine struct {
	logger *zap.Logger
}

// New builds a redirect Engine. A nil logger falls back to a no-op logger.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logging.NewComponentLogger(logger, logging.ComponentRedirect)}
}

// Middleware adapts the Engine to the pipeline's Middleware contract.
func (e *Engine) Middleware(req *recker.Request, next middleware.Next) (*recker.Response, error) {
	return e.Dispatch(req, next)
}

// Dispatch calls next and, while the response is a 3xx with Location and
// req.FollowRedirects, rebuilds and replays the request for the next hop.
func (e *Engine) Dispatch(req *recker.Request, next middleware.Next) (*recker.Response, error) {
	current := req
	hops := 0
	log := logging.WithContext(e.logger, req.Context())

	for {
		resp, err := next(current)
		if err != nil || resp == nil {
			return resp, err
		}
		if !isRedirect(resp.Status) || !current.FollowRedirects {
			return resp, nil
		}

		location := resp.Headers.Get("Location")
		if location == "" {
			return resp, nil
		}

		maxRedirects := current.MaxRedirects
		if maxRedirects <= 0 {
			maxRedirects = 5
		}
		if hops >= maxRedirects {
			resp.Discard()
			return nil, reckerr.ErrTooManyRedirects
		}

		nextURL, err := current.URL.Parse(location)
		if err != nil {
			resp.Discard()
			return nil, reckerr.Wrap(reckerr.KindProtocol, "invalid redirect Location header", err)
		}

		reshaped, err := reshape(current, resp.Status, nextURL)
		if err != nil {
			resp.Discard()
			return nil, err
		}

		if current.BeforeRedirect != nil {
			info := recker.RedirectInfo{From: current.URL, To: nextURL, Status: resp.Status, Headers: reshaped.Headers}
			proceed, replacement := current.BeforeRedirect(info)
			if !proceed {
				resp.Discard()
				return nil, reckerr.ErrRedirectRejected
			}
			if replacement != "" {
				replURL, err := url.Parse(replacement)
				if err != nil {
					resp.Discard()
					return nil, reckerr.Wrap(reckerr.KindProtocol, "invalid beforeRedirect replacement URL", err)
				}
				nextURL = replURL
				reshaped, err = reshape(current, resp.Status, nextURL)
				if err != nil {
					resp.Discard()
					return nil, err
				}
			}
		}

		log.Debug("following redirect",
			zap.Int(logging.FieldHop, hops+1),
			zap.Int(logging.FieldStatusCode, resp.Status),
			zap.String(logging.FieldURL, nextURL.String()),
		)

		resp.Discard()
		current = reshaped
		hops++
	}
}

func isRedirect(status int) bool {
	switch status {
	case 301, 302, 303, 307, 308:
		return true
	default:
		return false
	}
}

// reshape rebuilds the request for the next hop per RFC 7231's 3xx
// method/body rules and strips sensitive headers on cross-origin hops.
func reshape(req *recker.Request, status int, nextURL *url.URL) (*recker.Request, error) {
	next := req.WithURL(nextURL)

	switch status {
	case 301, 302, 303:
		if req.Method != recker.MethodGet && req.Method != recker.MethodHead {
			next = next.WithMethod(recker.MethodGet)
			next = next.WithBody(recker.Body{})
		}
	case 307, 308:
		if !req.Body.Replayable() {
			return nil, reckerr.ErrNonReplayableRedir
		}
	}

	if crossOrigin(req.URL, nextURL) {
		headers := next.Headers.Clone()
		for _, h := range sensitiveHeaders {
			headers.Del(h)
		}
		next = next.WithHeaders(headers)
	}

	return next, nil
}

func crossOrigin(a, b *url.URL) bool {
	return !strings.EqualFold(a.Scheme, b.Scheme) ||
		!strings.EqualFold(a.Hostname(), b.Hostname()) ||
		portOf(a) != portOf(b)
}

func portOf(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	if u.Scheme == "https" {
		return "443"
	}
	return "80"
}
