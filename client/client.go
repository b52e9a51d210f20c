// Package recker is the public facade: it assembles the internal pipeline
// stages (dedup, cache, cookie jar, auth, retry, redirect, scheduler,
// transport) behind a Client carrying per-verb methods, a lazy
// RequestHandle, and a batch executor.
package recker

import (
	"net/url"
	"time"

	"github.com/forattini-dev/recker/internal/auth"
	"github.com/forattini-dev/recker/internal/cache"
	"github.com/forattini-dev/recker/internal/config"
	"github.com/forattini-dev/recker/internal/cookiejar"
	"github.com/forattini-dev/recker/internal/dedup"
	"github.com/forattini-dev/recker/internal/logging"
	"github.com/forattini-dev/recker/internal/middleware"
	"github.com/forattini-dev/recker/internal/recker"
	"github.com/forattini-dev/recker/internal/redirect"
	"github.com/forattini-dev/recker/internal/retry"
	"github.com/forattini-dev/recker/internal/scheduler"
	"github.com/forattini-dev/recker/internal/transport"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dispatcher is the terminal stage a Client dispatches through; Transport
// and Scheduler both satisfy it. Exposed so tests and the cmd/benchmark
// harness can swap in a fake.
type Dispatcher interface {
	Dispatch(req *recker.Request) (*recker.Response, error)
}

// Client owns one pipeline: its own scheduler, dedup map, cache, and
// cookie jar. There is no process-global state; every Client is
// independent.
type Client struct {
	cfg     *config.Config
	logger  *zap.Logger
	baseURL *url.URL

	jar   *cookiejar.Jar
	auth  *auth.Engine
	cache *cache.Engine

	pipeline middleware.Next
}

// Option configures a Client at construction time.
type Option func(*buildOptions)

type buildOptions struct {
	logger        *zap.Logger
	authProvider  auth.Provider
	middlewares   []middleware.Middleware
	dispatcher    Dispatcher
	cacheStore    cache.Store
	cookieJar     *cookiejar.Jar
}

// WithLogger overrides the base zap.Logger every pipeline stage logs
// through.
func WithLogger(logger *zap.Logger) Option {
	return func(o *buildOptions) { o.logger = logger }
}

// WithAuth installs an auth.Provider (basic, bearer, digest, OAuth2,
// SigV4, ...).
func WithAuth(provider auth.Provider) Option {
	return func(o *buildOptions) { o.authProvider = provider }
}

// WithMiddleware appends a user middleware, registered between Auth and
// Retry so it sees a request that already carries cookies and
// credentials but runs inside every retry attempt.
func WithMiddleware(mw middleware.Middleware) Option {
	return func(o *buildOptions) { o.middlewares = append(o.middlewares, mw) }
}

// WithDispatcher overrides the terminal scheduler+transport stage,
// letting tests substitute a fake Dispatcher instead of real sockets.
func WithDispatcher(d Dispatcher) Option {
	return func(o *buildOptions) { o.dispatcher = d }
}

// WithCacheStore overrides the cache backend (e.g. a store.CacheStore or
// cache.NewRedisStore) instead of the default in-memory store.
func WithCacheStore(store cache.Store) Option {
	return func(o *buildOptions) { o.cacheStore = store }
}

// WithCookieJar installs a pre-populated jar (e.g. restored via
// store.CookieStore.LoadAll) instead of a fresh empty one.
func WithCookieJar(jar *cookiejar.Jar) Option {
	return func(o *buildOptions) { o.cookieJar = jar }
}

// New builds a Client from cfg, assembling the pipeline in registration
// order: Dedup, Cache, Auth, user middlewares, Retry, Redirect, Cookie,
// with the Scheduler wrapping Transport as the terminal stage. Cookie
// sits innermost so it re-runs for every hop a redirect follows, not
// just the original request.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	built := &buildOptions{}
	for _, opt := range opts {
		opt(built)
	}
	logger := built.logger
	if logger == nil {
		var err error
		logger, err = logging.NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
		if err != nil {
			return nil, err
		}
	}

	var baseURL *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		baseURL = u
	}

	dispatcher := built.dispatcher
	if dispatcher == nil {
		tr := transport.New(transportPoolConfig(cfg), logger)
		dispatcher = scheduler.New(schedulerConfig(cfg), tr, logger)
	}

	jar := built.cookieJar
	if jar == nil && cfg.Cookies.Enabled {
		jar = cookiejar.New(cfg.Cookies.IgnoreInvalid)
	}

	cacheStore := built.cacheStore
	if cacheStore == nil && cfg.Cache.Enabled {
		store, err := defaultCacheStore(cfg)
		if err != nil {
			return nil, err
		}
		cacheStore = store
	}

	var cacheEngine *cache.Engine
	if cfg.Cache.Enabled && cacheStore != nil {
		cacheEngine = cache.New(cache.Config{
			Strategy: cache.Strategy(cfg.Cache.Strategy),
			TTL:      cfg.Cache.TTL,
			SWR:      cfg.Cache.SWR,
		}, cacheStore, logger)
	}

	var authEngine *auth.Engine
	if built.authProvider != nil {
		authEngine = auth.New(built.authProvider, logger)
	}

	dedupEngine := dedup.New(logger)
	retryEngine := retry.New(retryConfig(cfg), logger)
	redirectEngine := redirect.New(logger)

	stages := []middleware.Middleware{dedupEngine.Middleware}
	if cacheEngine != nil {
		stages = append(stages, cacheEngine.Middleware)
	}
	if authEngine != nil {
		stages = append(stages, authEngine.Middleware)
	}
	stages = append(stages, built.middlewares...)
	stages = append(stages, retryEngine.Middleware, redirectEngine.Middleware)
	// Cookie attachment sits innermost, wrapping the scheduler/transport
	// directly, so it runs once per redirect hop rather than once per
	// top-level request: a cross-origin hop needs its own Cookie header
	// computed against the new origin's jar entries, and Set-Cookie from
	// each hop's response needs to land in the jar before the next hop
	// is dispatched.
	if jar != nil {
		stages = append(stages, cookieMiddleware(jar, logger))
	}

	c := &Client{
		cfg:      cfg,
		logger:   logger,
		baseURL:  baseURL,
		jar:      jar,
		auth:     authEngine,
		cache:    cacheEngine,
		pipeline: middleware.Chain(dispatcher.Dispatch, stages...),
	}
	return c, nil
}

func transportPoolConfig(cfg *config.Config) transport.PoolConfig {
	return transport.PoolConfig{
		Connections:      cfg.Concurrency.AgentConnections,
		PerDomainPooling: cfg.Concurrency.PerDomainPooling,
		IdleTimeout:      90 * time.Second,
		HTTP2Preferred:   true,
	}
}

func schedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		Max:                 cfg.Concurrency.Max,
		PerDomainMax:        cfg.Concurrency.PerDomainMax,
		RequestsPerInterval: cfg.Concurrency.RequestsPerInterval,
		Interval:            cfg.Concurrency.Interval,
	}
}

func retryConfig(cfg *config.Config) retry.Config {
	methods := make(map[recker.Method]bool, len(cfg.Retry.Methods))
	for _, m := range cfg.Retry.Methods {
		methods[recker.Method(m)] = true
	}
	statusCodes := make(map[int]bool, len(cfg.Retry.StatusCodes))
	for _, s := range cfg.Retry.StatusCodes {
		statusCodes[s] = true
	}
	return retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Backoff:     retry.Backoff(cfg.Retry.Backoff),
		Delay:       cfg.Retry.Delay,
		Factor:      cfg.Retry.Factor,
		MaxDelay:    cfg.Retry.MaxDelay,
		Jitter:      retry.Jitter(cfg.Retry.Jitter),
		StatusCodes: statusCodes,
		Methods:     methods,
	}
}

func defaultCacheStore(cfg *config.Config) (cache.Store, error) {
	if cfg.Cache.Store == "redis" && cfg.Cache.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		client := redis.NewClient(opts)
		return cache.NewRedisStore(client, "recker:cache:", cfg.Cache.TTL+cfg.Cache.SWR), nil
	}
	return cache.NewMemoryStore(1000), nil
}

// cookieMiddleware adapts a cookiejar.Jar (which has no Middleware method
// of its own, since attaching/storing cookies needs access to
// Request.WithHeader) into a pipeline stage: it attaches the Cookie
// header before next runs and stores any Set-Cookie values next's
// response carries.
func cookieMiddleware(jar *cookiejar.Jar, logger *zap.Logger) middleware.Middleware {
	log := logging.NewComponentLogger(logger, logging.ComponentCookieJar)
	return func(req *recker.Request, next middleware.Next) (*recker.Response, error) {
		outgoing := req
		if cookies := jar.GetCookiesFor(req.URL); cookies != "" {
			outgoing = req.WithHeader("Cookie", cookies)
		}
		resp, err := next(outgoing)
		if resp != nil {
			if setCookies := resp.Headers.Values("Set-Cookie"); len(setCookies) > 0 {
				jar.SetFromHeader(req.URL, setCookies)
				log.Debug("stored cookies", zap.Int("count", len(setCookies)))
			}
		}
		return resp, err
	}
}

// Jar exposes the underlying cookie jar, or nil when cookies are
// disabled, for callers that want to inspect or persist it directly.
func (c *Client) Jar() *cookiejar.Jar { return c.jar }
