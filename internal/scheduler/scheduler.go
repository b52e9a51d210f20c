// Package scheduler wraps a Transport with global and per-domain admission
// control: a rate-limiting token bucket, bounded concurrency slots, and an
// adaptive per-domain pause driven by rate-limit response headers.
package scheduler

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/forattini-dev/recker/internal/logging"
	"github.com/forattini-dev/recker/internal/recker"
	"github.com/forattini-dev/recker/internal/reckerr"
	"go.uber.org/zap"
)

// Dispatcher is the minimal leaf contract the scheduler wraps; Transport
// satisfies it.
type Dispatcher interface {
	Dispatch(req *recker.Request) (*recker.Response, error)
}

// Config controls admission.
type Config struct {
	Max                 int           // global concurrent slot cap, 0 = unbounded
	PerDomainMax        int           // per-domain concurrent slot cap, 0 = unbounded
	RequestsPerInterval int           // rate bucket capacity, 0 = disabled
	Interval            time.Duration // rate bucket refill interval
}

// DefaultConfig matches internal/config.ConcurrencyConfig's defaults.
func DefaultConfig() Config {
	return Config{Max: 64, PerDomainMax: 6, Interval: time.Second}
}

type domainState struct {
	sem        chan struct{}
	mu         sync.Mutex
	pauseUntil time.Time
}

// Scheduler is the pipeline's admission gate in front of a Dispatcher.
type Scheduler struct {
	cfg        Config
	transport  Dispatcher
	logger     *zap.Logger
	globalSem  chan struct{}
	rate       *tokenBucket
	domainsMu  sync.Mutex
	domains    map[string]*domainState
}

// New builds a Scheduler wrapping transport. A nil logger falls back to a
// no-op logger.
func New(cfg Config, transport Dispatcher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	var globalSem chan struct{}
	if cfg.Max > 0 {
		globalSem = make(chan struct{}, cfg.Max)
	}
	return &Scheduler{
		cfg:       cfg,
		transport: transport,
		logger:    logging.NewComponentLogger(logger, logging.ComponentScheduler),
		globalSem: globalSem,
		rate:      newTokenBucket(cfg.RequestsPerInterval, cfg.Interval),
		domains:   make(map[string]*domainState),
	}
}

func (s *Scheduler) domainFor(u *url.URL) *domainState {
	key := u.Hostname()
	s.domainsMu.Lock()
	defer s.domainsMu.Unlock()
	d, ok := s.domains[key]
	if !ok {
		d = &domainState{}
		if s.cfg.PerDomainMax > 0 {
			d.sem = make(chan struct{}, s.cfg.PerDomainMax)
		}
		s.domains[key] = d
	}
	return d
}

// Dispatch admits req (rate bucket, global slot, per-domain slot, adaptive
// pause, in that order) before calling the wrapped Transport, and releases
// slots in reverse order on completion. Satisfies middleware.Next so it can
// sit directly in front of Transport in a pipeline.
func (s *Scheduler) Dispatch(req *recker.Request) (*recker.Response, error) {
	ctx := req.Context()
	log := logging.WithContext(s.logger, ctx)
	domain := s.domainFor(req.URL)
	host := req.URL.Hostname()

	if err := s.waitForRate(ctx); err != nil {
		return nil, err
	}

	releaseGlobal, err := acquire(ctx, s.globalSem)
	if err != nil {
		return nil, err
	}
	defer releaseGlobal()

	releaseDomain, err := acquire(ctx, domain.sem)
	if err != nil {
		return nil, err
	}
	defer releaseDomain()

	if err := s.waitForPause(ctx, domain, host, log); err != nil {
		return nil, err
	}

	resp, err := s.transport.Dispatch(req)
	if resp != nil {
		s.observe(domain, host, resp, log)
	}
	return resp, err
}

func (s *Scheduler) waitForRate(ctx context.Context) error {
	if s.rate == nil || s.cfg.RequestsPerInterval <= 0 {
		return nil
	}
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if s.rate.tryTake() {
			return nil
		}
		select {
		case <-ctx.Done():
			return reckerr.Wrap(reckerr.KindScheduleCancel, "cancelled waiting for rate bucket", ctx.Err())
		case <-ticker.C:
		}
	}
}

func acquire(ctx context.Context, sem chan struct{}) (func(), error) {
	if sem == nil {
		return func() {}, nil
	}
	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, reckerr.Wrap(reckerr.KindScheduleCancel, "cancelled waiting for admission slot", ctx.Err())
	}
}

func (s *Scheduler) waitForPause(ctx context.Context, d *domainState, host string, log *zap.Logger) error {
	for {
		d.mu.Lock()
		until := d.pauseUntil
		d.mu.Unlock()
		if until.IsZero() {
			return nil
		}
		wait := time.Until(until)
		if wait <= 0 {
			return nil
		}
		log.Debug("waiting out adaptive pause",
			zap.String(logging.FieldHost, host),
			zap.Int64(logging.FieldDelayMs, wait.Milliseconds()),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return reckerr.Wrap(reckerr.KindScheduleCancel, "cancelled waiting for adaptive pause", ctx.Err())
		case <-timer.C:
		}
	}
}

// observe parses rate-limit headers from resp and, when they signal
// exhaustion, sets the domain's pauseUntil, independent of any opt-in
// flag.
func (s *Scheduler) observe(d *domainState, host string, resp *recker.Response, log *zap.Logger) {
	pause, ok := adaptivePause(resp)
	if !ok {
		return
	}
	d.mu.Lock()
	d.pauseUntil = time.Now().Add(pause)
	d.mu.Unlock()
	log.Debug("adaptive pause set",
		zap.String(logging.FieldHost, host),
		zap.Int(logging.FieldStatusCode, resp.Status),
		zap.Int64(logging.FieldDelayMs, pause.Milliseconds()),
	)
}

func adaptivePause(resp *recker.Response) (time.Duration, bool) {
	if retryAfter := resp.Headers.Get("Retry-After"); retryAfter != "" && (resp.Status == 429 || resp.Status == 503) {
		if d, ok := parseRetryAfter(retryAfter); ok {
			return d, true
		}
	}

	remaining := firstNonEmpty(resp.Headers.Get("RateLimit-Remaining"), resp.Headers.Get("X-RateLimit-Remaining"))
	reset := firstNonEmpty(resp.Headers.Get("RateLimit-Reset"), resp.Headers.Get("X-RateLimit-Reset"))
	if remaining == "" || reset == "" {
		return 0, false
	}
	remainingN, err := strconv.Atoi(strings.TrimSpace(remaining))
	if err != nil || remainingN > 0 {
		return 0, false
	}
	resetN, err := strconv.ParseFloat(strings.TrimSpace(reset), 64)
	if err != nil {
		return 0, false
	}

	var delta time.Duration
	if resetN > 1e8 {
		// epoch seconds
		delta = time.Until(time.Unix(int64(resetN), 0))
	} else {
		delta = time.Duration(resetN * float64(time.Second))
	}
	if delta <= 0 {
		return 0, false
	}
	return delta, true
}

func parseRetryAfter(value string) (time.Duration, bool) {
	if secs, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := time.Parse(time.RFC1123, value); err == nil {
		delta := time.Until(t)
		if delta <= 0 {
			return 0, false
		}
		return delta, true
	}
	return 0, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
