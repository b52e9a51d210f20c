package auth

import (
	"github.com/forattini-dev/recker/internal/logging"
	"github.com/forattini-dev/recker/internal/middleware"
	"github.com/forattini-dev/recker/internal/obfuscate"
	"github.com/forattini-dev/recker/internal/recker"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Engine adapts a Provider into pipeline middleware: it authorizes every
// outgoing request, and on a 401 gives the Provider one chance to
// refresh its credential and have the request replayed. Concurrent 401s
// for the same provider share a single refresh via singleflight so a
// burst of expired requests doesn't hammer the token endpoint.
type Engine struct {
	provider Provider
	logger   *zap.Logger
	group    singleflight.Group
}

// New builds an Engine wrapping provider. A nil provider makes the
// middleware a no-op passthrough. A nil logger falls back to a no-op
// logger.
func New(provider Provider, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		provider: provider,
		logger:   logging.NewComponentLogger(logger, logging.ComponentAuth),
	}
}

// Middleware implements middleware.Middleware.
func (e *Engine) Middleware(req *recker.Request, next middleware.Next) (*recker.Response, error) {
	if e.provider == nil {
		return next(req)
	}

	signed, err := e.provider.Authorize(req.Context(), req)
	if err != nil {
		return nil, err
	}
	e.logAuthorization(signed)

	resp, err := next(signed)
	if err != nil {
		return resp, err
	}
	if resp.Status != 401 {
		return resp, nil
	}

	refreshed, refreshErr, _ := e.group.Do("refresh", func() (any, error) {
		return e.provider.HandleUnauthorized(req.Context(), resp)
	})
	if refreshErr != nil {
		e.logger.Debug("credential refresh failed", zap.Error(refreshErr))
		return resp, nil
	}
	if ok, _ := refreshed.(bool); !ok {
		return resp, nil
	}

	retrySigned, err := e.provider.Authorize(req.Context(), req)
	if err != nil {
		return resp, nil
	}
	e.logger.Debug("retrying request after credential refresh", zap.String(logging.FieldURL, retrySigned.URL.String()))
	e.logAuthorization(retrySigned)
	return next(retrySigned)
}

// logAuthorization emits a debug line naming which credential header was
// attached, without ever logging the credential itself in the clear.
func (e *Engine) logAuthorization(req *recker.Request) {
	if ce := e.logger.Check(zap.DebugLevel, "authorized request"); ce != nil {
		if v := req.Headers.Get("Authorization"); v != "" {
			ce.Write(zap.String(logging.FieldURL, req.URL.String()), zap.String("authorization", obfuscate.ObfuscateTokenGeneric(v)))
		}
	}
}
