// Package transport implements the leaf dispatcher of the pipeline: it
// opens or reuses a pooled connection, writes the request, and returns a
// Response whose body is a lazy byte stream.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"runtime"
	"time"

	"github.com/forattini-dev/recker/internal/decode"
	"github.com/forattini-dev/recker/internal/logging"
	"github.com/forattini-dev/recker/internal/progress"
	"github.com/forattini-dev/recker/internal/recker"
	"github.com/forattini-dev/recker/internal/reckerr"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// defaultAcceptEncoding is sent when the caller hasn't set one, enabling
// transparent decompression of gzip, deflate, or brotli responses.
const defaultAcceptEncoding = "gzip, deflate, br"

// PoolConfig controls the per-key connection pool backing Transport.
type PoolConfig struct {
	// Connections is the max idle+active connections per pool key; 0
	// means "auto" (2 * GOMAXPROCS).
	Connections int
	// PerDomainPooling keys the pool by (scheme, host, port) when true,
	// otherwise all requests share one pool.
	PerDomainPooling bool
	IdleTimeout      time.Duration
	HTTP2Preferred   bool
}

// DefaultPoolConfig returns recker's stated connection-pool defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Connections:      0,
		PerDomainPooling: true,
		IdleTimeout:      90 * time.Second,
		HTTP2Preferred:   true,
	}
}

// Transport dispatches a Request over pooled net/http RoundTrippers keyed
// by (scheme, host, port). It is the pipeline's innermost stage.
type Transport struct {
	cfg     PoolConfig
	logger  *zap.Logger
	clients map[string]*http.Client
}

// New builds a Transport. A nil logger falls back to a no-op logger.
func New(cfg PoolConfig, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, logging.ComponentTransport),
		clients: make(map[string]*http.Client),
	}
}

func (t *Transport) maxConnsPerHost() int {
	if t.cfg.Connections > 0 {
		return t.cfg.Connections
	}
	return 2 * runtime.GOMAXPROCS(0)
}

func poolKey(u *url.URL, perDomain bool) string {
	if !perDomain {
		return "shared"
	}
	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return u.Scheme + "://" + u.Hostname() + ":" + port
}

func (t *Transport) clientFor(u *url.URL) *http.Client {
	key := poolKey(u, t.cfg.PerDomainPooling)
	if c, ok := t.clients[key]; ok {
		return c
	}
	rt := &http.Transport{
		MaxConnsPerHost:     t.maxConnsPerHost(),
		MaxIdleConnsPerHost: t.maxConnsPerHost(),
		IdleConnTimeout:     t.cfg.IdleTimeout,
		TLSClientConfig:     &tls.Config{},
	}
	if t.cfg.HTTP2Preferred {
		_ = http2.ConfigureTransport(rt)
	}
	client := &http.Client{
		Transport: rt,
		// Redirects are handled by the redirect middleware, not net/http.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	t.clients[key] = client
	return client
}

// Dispatch sends req and returns a lazy Response.
func (t *Transport) Dispatch(req *recker.Request) (*recker.Response, error) {
	start := time.Now()
	ctx := req.Context()
	if req.Timeouts.Whole > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeouts.Whole)
		defer cancel()
	}
	log := logging.WithContext(t.logger, ctx)
	log.Debug("dispatching request",
		zap.String(logging.FieldMethod, string(req.Method)),
		zap.String(logging.FieldHost, req.URL.Host),
		zap.String(logging.FieldURL, req.URL.String()),
	)

	body, contentType, err := req.Body.Open()
	if err != nil {
		return nil, reckerr.Wrap(reckerr.KindProtocol, "opening request body", err)
	}

	var uploadBody io.ReadCloser = body
	if body != nil && req.OnUploadProgress != nil {
		uploadBody = progress.New(body, progressSize(req.Body), "upload", req.OnUploadProgress)
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL.String(), uploadBody)
	if err != nil {
		return nil, reckerr.Wrap(reckerr.KindProtocol, "building transport request", err)
	}
	req.Headers.Range(func(name, value string) {
		httpReq.Header.Add(name, value)
	})
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if httpReq.Header.Get("Accept-Encoding") == "" {
		httpReq.Header.Set("Accept-Encoding", defaultAcceptEncoding)
	}

	client := t.clientFor(req.URL)
	resp, err := client.Do(httpReq)
	if err != nil {
		classified := classifyTransportError(err)
		log.Warn("request failed",
			zap.String(logging.FieldHost, req.URL.Host),
			zap.Int64(logging.FieldDurationMs, time.Since(start).Milliseconds()),
			zap.Error(classified),
		)
		return nil, classified
	}

	headers := recker.Headers{}
	for name, values := range resp.Header {
		for _, v := range values {
			headers.Add(name, v)
		}
	}

	respBody := newTimeoutReader(ctx, resp.Body, req.Timeouts.ResponseStart, req.Timeouts.BetweenBytes)

	encoding := resp.Header.Get("Content-Encoding")
	decoded, err := decode.Decompress(respBody, encoding)
	if err != nil {
		_ = respBody.Close()
		return nil, reckerr.NewDecode(reckerr.DecodeGzip, err)
	}
	respBody = decoded
	if encoding != "" && encoding != "identity" {
		headers.Del("Content-Encoding")
		headers.Del("Content-Length")
	}

	// Progress wraps the decoded stream, so callers see upload/download
	// percentages in terms of actual content bytes, not wire bytes.
	if req.OnDownloadProgress != nil {
		respBody = progress.New(respBody, contentLength(resp), "download", req.OnDownloadProgress)
	}

	log.Debug("received response",
		zap.Int(logging.FieldStatusCode, resp.StatusCode),
		zap.Int64(logging.FieldDurationMs, time.Since(start).Milliseconds()),
	)

	out := recker.NewResponse(resp.StatusCode, resp.Status, headers, req.URL, respBody)
	return out, nil
}

func contentLength(resp *http.Response) int64 {
	if resp.ContentLength > 0 {
		return resp.ContentLength
	}
	return 0
}

func progressSize(b recker.Body) int64 {
	switch b.Kind {
	case recker.BodyBytes:
		return int64(len(b.Bytes))
	case recker.BodyText:
		return int64(len(b.Text))
	default:
		return 0
	}
}

// classifyTransportError maps net/http dial failures to the pipeline's
// Connect/DNS/TLS/Protocol error taxonomy.
func classifyTransportError(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return reckerr.Wrap(reckerr.KindDNS, "dns lookup failed", err)
	}
	var tlsErr *tls.CertificateVerificationError
	if errors.As(err, &tlsErr) {
		return reckerr.Wrap(reckerr.KindTLS, "tls verification failed", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return reckerr.NewTimeout(reckerr.TimeoutConnect, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return reckerr.Wrap(reckerr.KindConnect, "connect failed", err)
		}
	}
	return reckerr.Wrap(reckerr.KindConnect, fmt.Sprintf("request failed: %v", err), err)
}
