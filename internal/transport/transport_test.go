package transport

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/forattini-dev/recker/internal/reckerr"
	"github.com/forattini-dev/recker/internal/recker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchRoundTripsGET(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Echo", "yes")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))
	defer server.Close()

	tr := New(DefaultPoolConfig(), nil)
	u, _ := url.Parse(server.URL)
	req := recker.NewRequest(recker.MethodGet, u)

	resp, err := tr.Dispatch(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "yes", resp.Headers.Get("X-Echo"))

	body, err := resp.Body()
	require.NoError(t, err)
	data := make([]byte, 5)
	n, _ := body.Read(data)
	assert.Equal(t, "hello", string(data[:n]))
}

func TestDispatchSendsBodyAndContentType(t *testing.T) {
	var gotCT string
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	tr := New(DefaultPoolConfig(), nil)
	u, _ := url.Parse(server.URL)
	req := recker.NewRequest(recker.MethodPost, u).WithBody(recker.BodyFromText("payload"))

	resp, err := tr.Dispatch(req)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.Status)
	assert.Contains(t, gotCT, "text/plain")
	assert.Equal(t, "payload", gotBody)
}

func TestDispatchConnectErrorClassified(t *testing.T) {
	tr := New(DefaultPoolConfig(), nil)
	u, _ := url.Parse("http://127.0.0.1:1")
	req := recker.NewRequest(recker.MethodGet, u)

	_, err := tr.Dispatch(req)
	require.Error(t, err)
}

func TestDispatchWholeTimeoutAbortsSlowHandler(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tr := New(DefaultPoolConfig(), nil)
	u, _ := url.Parse(server.URL)
	req := recker.NewRequest(recker.MethodGet, u)
	req.Timeouts.Whole = 5 * time.Millisecond

	_, err := tr.Dispatch(req)
	require.Error(t, err)
}

func TestDispatchBetweenBytesTimeoutOnSlowBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, _ := w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("first"))
		if flusher != nil {
			flusher.Flush()
		}
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte("second"))
	}))
	defer server.Close()

	tr := New(DefaultPoolConfig(), nil)
	u, _ := url.Parse(server.URL)
	req := recker.NewRequest(recker.MethodGet, u)
	req.Timeouts.BetweenBytes = 5 * time.Millisecond

	resp, err := tr.Dispatch(req)
	require.NoError(t, err)

	body, err := resp.Body()
	require.NoError(t, err)

	buf := make([]byte, 5)
	n, err := body.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "first", string(buf[:n]))

	_, err = body.Read(buf)
	require.Error(t, err)
	rerr, ok := reckerr.As(err)
	require.True(t, ok)
	assert.Equal(t, reckerr.KindTimeout, rerr.Kind)
}

func TestDispatchDecompressesGzipResponse(t *testing.T) {
	var gotAcceptEncoding string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAcceptEncoding = r.Header.Get("Accept-Encoding")
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(http.StatusOK)
		gw := gzip.NewWriter(w)
		_, _ = gw.Write([]byte("hello gzip"))
		_ = gw.Close()
	}))
	defer server.Close()

	tr := New(DefaultPoolConfig(), nil)
	u, _ := url.Parse(server.URL)
	req := recker.NewRequest(recker.MethodGet, u)

	resp, err := tr.Dispatch(req)
	require.NoError(t, err)
	assert.Equal(t, "gzip, deflate, br", gotAcceptEncoding)
	assert.Empty(t, resp.Headers.Get("Content-Encoding"))

	body, err := resp.Body()
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello gzip", string(data))
}

func TestNewTimeoutReaderPassthroughWhenBudgetsZero(t *testing.T) {
	r := io.NopCloser(nil)
	wrapped := newTimeoutReader(nil, r, 0, 0)
	assert.Same(t, io.ReadCloser(r), wrapped)
}
