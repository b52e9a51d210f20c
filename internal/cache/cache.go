// Package cache implements the response cache middleware: ttl /
// stale-while-revalidate / no-store policies over a pluggable Store, read
// before Cookie/Auth so hits never pollute the jar or trigger auth
// refresh. The in-memory store uses container/heap-based FIFO eviction
// over a size cap; the Redis-backed store exercises
// github.com/redis/go-redis/v9 for cross-instance sharing.
package cache

import (
	"sync"
	"time"

	"github.com/forattini-dev/recker/internal/logging"
	"github.com/forattini-dev/recker/internal/middleware"
	"github.com/forattini-dev/recker/internal/recker"
	"go.uber.org/zap"
)

// Strategy selects the cache's freshness policy.
type Strategy string

const (
	NoStore Strategy = "no-store"
	TTL     Strategy = "ttl"
	SWR     Strategy = "stale-while-revalidate"
)

// Entry is a stored response snapshot: full bytes plus headers, since a
// cache hit must reconstruct a fresh Response per caller.
type Entry struct {
	Status     int
	StatusText string
	Headers    recker.Headers
	Body       []byte
	InsertedAt time.Time
}

// Store is the pluggable cache backend contract.
type Store interface {
	Get(fingerprint string) (Entry, bool)
	Put(fingerprint string, entry Entry)
	Delete(fingerprint string)
}

// Config controls the cache middleware.
type Config struct {
	Strategy Strategy
	TTL      time.Duration
	SWR      time.Duration
}

// Engine is the cache middleware: read-through on dedupable GET/HEAD
// requests, honoring Strategy.
type Engine struct {
	cfg    Config
	store  Store
	logger *zap.Logger

	revalidatingMu sync.Mutex
	revalidating   map[string]bool
}

// New builds a cache Engine over store. A nil logger falls back to a
// no-op logger.
func New(cfg Config, store Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:          cfg,
		store:        store,
		logger:       logging.NewComponentLogger(logger, logging.ComponentCache),
		revalidating: make(map[string]bool),
	}
}

// Middleware adapts the Engine to the pipeline's Middleware contract.
func (e *Engine) Middleware(req *recker.Request, next middleware.Next) (*recker.Response, error) {
	if e.cfg.Strategy == NoStore || e.cfg.Strategy == "" || !req.IsDedupable() {
		return next(req)
	}

	fp, ok := recker.Fingerprint(req)
	if !ok {
		return next(req)
	}

	log := logging.WithContext(e.logger, req.Context())

	entry, found := e.store.Get(fp)
	if !found {
		log.Debug("cache miss", zap.String(logging.FieldCacheState, "miss"))
		return e.fetchAndStore(req, next, fp)
	}

	age := time.Since(entry.InsertedAt)
	if age <= e.cfg.TTL {
		log.Debug("cache hit", zap.String(logging.FieldCacheState, "fresh"))
		return fromEntry(entry), nil
	}

	if e.cfg.Strategy == SWR && age <= e.cfg.TTL+e.cfg.SWR {
		log.Debug("cache hit, revalidating in background", zap.String(logging.FieldCacheState, "stale"))
		e.revalidateAsync(req, next, fp)
		return fromEntry(entry), nil
	}

	log.Debug("cache entry expired", zap.String(logging.FieldCacheState, "expired"))
	e.store.Delete(fp)
	return e.fetchAndStore(req, next, fp)
}

func (e *Engine) fetchAndStore(req *recker.Request, next middleware.Next, fp string) (*recker.Response, error) {
	resp, err := next(req)
	if err != nil || resp == nil {
		return resp, err
	}
	return e.cacheResponse(resp, fp)
}

func (e *Engine) revalidateAsync(req *recker.Request, next middleware.Next, fp string) {
	e.revalidatingMu.Lock()
	if e.revalidating[fp] {
		e.revalidatingMu.Unlock()
		return
	}
	e.revalidating[fp] = true
	e.revalidatingMu.Unlock()

	go func() {
		defer func() {
			e.revalidatingMu.Lock()
			delete(e.revalidating, fp)
			e.revalidatingMu.Unlock()
		}()
		resp, err := next(req)
		if err == nil && resp != nil {
			_, _ = e.cacheResponse(resp, fp)
		}
	}()
}

func (e *Engine) cacheResponse(resp *recker.Response, fp string) (*recker.Response, error) {
	twin, err := resp.Clone()
	if err != nil {
		return resp, nil
	}
	body, err := resp.Body()
	if err != nil {
		return twin, nil
	}
	data, err := readAll(body)
	if err != nil {
		return twin, nil
	}
	e.store.Put(fp, Entry{
		Status:     resp.Status,
		StatusText: resp.StatusText,
		Headers:    resp.Headers.Clone(),
		Body:       data,
		InsertedAt: time.Now(),
	})
	return twin, nil
}

func fromEntry(e Entry) *recker.Response {
	return recker.NewResponse(e.Status, e.StatusText, e.Headers.Clone(), nil, newBodyReader(e.Body))
}
