// Package retry implements the retry engine: configurable retriable
// conditions, fixed/linear/exponential backoff with jitter, Retry-After
// overrides, and body-replay enforcement. The backoff curve is built on
// github.com/sethvargo/go-retry's Backoff primitives.
package retry

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/forattini-dev/recker/internal/logging"
	"github.com/forattini-dev/recker/internal/middleware"
	"github.com/forattini-dev/recker/internal/recker"
	"github.com/forattini-dev/recker/internal/reckerr"
	goretry "github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Backoff selects the retry delay curve, mirroring config.BackoffKind.
type Backoff string

const (
	Fixed       Backoff = "fixed"
	Linear      Backoff = "linear"
	Exponential Backoff = "exponential"
)

// Jitter selects how the computed delay is randomized.
type Jitter string

const (
	JitterNone  Jitter = "none"
	JitterFull  Jitter = "full"
	JitterEqual Jitter = "equal"
)

// Predicate decides whether a non-idempotent method's response/error
// should still be retried, the caller-supplied override for methods like
// POST that aren't retried by default.
type Predicate func(req *recker.Request, resp *recker.Response, err error) bool

// Config controls the retry engine.
type Config struct {
	MaxAttempts int
	Backoff     Backoff
	Delay       time.Duration
	Factor      float64
	MaxDelay    time.Duration
	Jitter      Jitter
	StatusCodes map[int]bool
	Methods     map[recker.Method]bool
	On          Predicate
}

// DefaultConfig matches config.RetryConfig's defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Backoff:     Exponential,
		Delay:       200 * time.Millisecond,
		Factor:      2.0,
		MaxDelay:    10 * time.Second,
		Jitter:      JitterFull,
		StatusCodes: toSet(408, 425, 429, 500, 502, 503, 504),
		Methods: map[recker.Method]bool{
			recker.MethodGet:     true,
			recker.MethodHead:    true,
			recker.MethodPut:     true,
			recker.MethodDelete:  true,
			recker.MethodOptions: true,
			recker.MethodTrace:   true,
		},
	}
}

func toSet(codes ...int) map[int]bool {
	m := make(map[int]bool, len(codes))
	for _, c := range codes {
		m[c] = true
	}
	return m
}

// Engine wraps an inner Next (typically Redirect → Scheduler → Transport)
// with retry semantics.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// New builds a retry Engine. A nil logger falls back to a no-op logger.
func New(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logging.NewComponentLogger(logger, logging.ComponentRetry)}
}

// Middleware adapts the Engine to the pipeline's Middleware contract.
func (e *Engine) Middleware(req *recker.Request, next middleware.Next) (*recker.Response, error) {
	return e.Dispatch(req, next)
}

// newCurve builds the base delay sequence (pre-jitter, pre-Retry-After)
// for one request's retry run.
func (e *Engine) newCurve() goretry.Backoff {
	base := e.cfg.Delay
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	var b goretry.Backoff
	switch e.cfg.Backoff {
	case Fixed:
		b = goretry.NewConstant(base)
	case Linear:
		b = &linearBackoff{base: base, step: 0}
	default: // Exponential, honoring the configured growth Factor
		factor := e.cfg.Factor
		if factor <= 0 {
			factor = 2
		}
		b = &exponentialBackoff{base: base, factor: factor, current: base}
	}
	if e.cfg.MaxDelay > 0 {
		b = goretry.WithCappedDuration(e.cfg.MaxDelay, b)
	}
	return b
}

// linearBackoff is a goretry.Backoff implementing linear growth, which the
// library itself does not provide (only constant and exponential).
type linearBackoff struct {
	base time.Duration
	step int
}

func (l *linearBackoff) Next() (time.Duration, bool) {
	l.step++
	return l.base * time.Duration(l.step), false
}

// exponentialBackoff implements goretry.Backoff with a caller-supplied
// growth factor. goretry.NewExponential always doubles, silently ignoring
// any configured Factor other than 2, so this hand-rolled curve is used
// instead whenever the configuration is actually honored.
type exponentialBackoff struct {
	base    time.Duration
	factor  float64
	current time.Duration
	step    int
}

func (e *exponentialBackoff) Next() (time.Duration, bool) {
	if e.step == 0 {
		e.step++
		return e.current, false
	}
	e.current = time.Duration(float64(e.current) * e.factor)
	e.step++
	return e.current, false
}

// Dispatch runs req through next, retrying on the configured conditions up
// to cfg.MaxAttempts times.
func (e *Engine) Dispatch(req *recker.Request, next middleware.Next) (*recker.Response, error) {
	methodGated := e.methodAllowed(req)
	curve := e.newCurve()
	log := logging.WithContext(e.logger, req.Context())

	for attempt := 1; ; attempt++ {
		attemptReq := req
		if attempt > 1 {
			body, err := replay(req.Body)
			if err != nil {
				return nil, err
			}
			attemptReq = req.WithBody(body)
			if req.EmitRetryAttemptHeader {
				attemptReq = attemptReq.WithHeader("X-Retry-Attempt", strconv.Itoa(attempt))
			}
		}

		resp, err := next(attemptReq)
		if !e.shouldRetry(req, resp, err, methodGated) || attempt >= e.cfg.MaxAttempts {
			if resp != nil {
				resp.Attempt = attempt
			}
			return resp, err
		}

		delay := e.delayFor(curve, resp)
		if resp != nil {
			resp.Discard()
		}

		log.Debug("retrying request",
			zap.Int(logging.FieldAttempt, attempt),
			zap.Int64(logging.FieldDelayMs, delay.Milliseconds()),
		)

		select {
		case <-req.Context().Done():
			if err != nil {
				return nil, err
			}
			return resp, req.Context().Err()
		case <-time.After(delay):
		}
	}
}

func (e *Engine) methodAllowed(req *recker.Request) bool {
	if len(e.cfg.Methods) == 0 {
		return true
	}
	return e.cfg.Methods[req.Method]
}

func (e *Engine) shouldRetry(req *recker.Request, resp *recker.Response, err error, methodGated bool) bool {
	if !methodGated {
		if e.cfg.On == nil || !e.cfg.On(req, resp, err) {
			return false
		}
		return e.retriableCause(resp, err)
	}
	return e.retriableCause(resp, err)
}

func (e *Engine) retriableCause(resp *recker.Response, err error) bool {
	if err != nil {
		if rerr, ok := reckerr.As(err); ok {
			switch rerr.Kind {
			case reckerr.KindConnect, reckerr.KindDNS:
				return true
			case reckerr.KindTimeout:
				return rerr.Category == reckerr.TimeoutConnect || rerr.Category == reckerr.TimeoutResponseStart
			}
		}
		return false
	}
	if resp == nil {
		return false
	}
	return e.cfg.StatusCodes[resp.Status]
}

// delayFor computes the backoff delay for the current attempt, honoring a
// Retry-After header override when it is present and larger than the
// computed delay.
func (e *Engine) delayFor(curve goretry.Backoff, resp *recker.Response) time.Duration {
	base, _ := curve.Next()
	base = applyJitter(base, e.cfg.Jitter)
	if resp != nil {
		if override, ok := retryAfterDelay(resp); ok && override > base {
			return override
		}
	}
	return base
}

func applyJitter(d time.Duration, j Jitter) time.Duration {
	if d <= 0 {
		return 0
	}
	switch j {
	case JitterFull:
		return time.Duration(rand.Int63n(int64(d) + 1))
	case JitterEqual:
		half := d / 2
		return half + time.Duration(rand.Int63n(int64(half)+1))
	default:
		return d
	}
}

func retryAfterDelay(resp *recker.Response) (time.Duration, bool) {
	v := resp.Headers.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := time.Parse(time.RFC1123, v); err == nil {
		if delta := time.Until(t); delta > 0 {
			return delta, true
		}
	}
	return 0, false
}

// replay re-opens body if replayable, otherwise fails with
// NonReplayableBody.
func replay(body recker.Body) (recker.Body, error) {
	if !body.Replayable() {
		return recker.Body{}, reckerr.ErrNonReplayableBody
	}
	return body, nil
}
