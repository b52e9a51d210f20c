// Package dedup coalesces in-flight requests that share a fingerprint
// using golang.org/x/sync/singleflight. Joining callers receive an
// independent clone of the shared response's body stream.
package dedup

import (
	"github.com/forattini-dev/recker/internal/logging"
	"github.com/forattini-dev/recker/internal/middleware"
	"github.com/forattini-dev/recker/internal/recker"
	"golang.org/x/sync/singleflight"

	"go.uber.org/zap"
)

// Engine coalesces concurrent dedupable requests sharing a fingerprint.
type Engine struct {
	group  singleflight.Group
	logger *zap.Logger
}

// New builds a dedup Engine. A nil logger falls back to a no-op logger.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logging.NewComponentLogger(logger, logging.ComponentDedup)}
}

// Middleware adapts the Engine to the pipeline's Middleware contract.
// Non-dedupable requests and requests whose body disqualifies
// fingerprinting bypass coalescing entirely.
func (e *Engine) Middleware(req *recker.Request, next middleware.Next) (*recker.Response, error) {
	if !req.IsDedupable() {
		return next(req)
	}
	fp, ok := recker.Fingerprint(req)
	if !ok {
		return next(req)
	}

	v, err, shared := e.group.Do(fp, func() (any, error) {
		return next(req)
	})
	if err != nil {
		return nil, err
	}
	resp, _ := v.(*recker.Response)
	if resp == nil {
		return nil, nil
	}
	if !shared {
		return resp, nil
	}

	logging.WithContext(e.logger, req.Context()).Debug("coalesced into in-flight request",
		zap.String(logging.FieldFingerprint, fp),
	)

	twin, cloneErr := resp.Clone()
	if cloneErr != nil {
		return resp, nil
	}
	return twin, nil
}
