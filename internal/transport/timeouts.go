package transport

import (
	"context"
	"io"
	"time"

	"github.com/forattini-dev/recker/internal/reckerr"
)

// timeoutReader enforces a deadline on each Read call over the response
// body: respStart bounds the first Read (time to first byte), betweenBytes
// bounds every Read after that. A Read that doesn't return within its
// budget closes the underlying stream and surfaces a timeout error.
type timeoutReader struct {
	io.ReadCloser
	ctx          context.Context
	respStart    time.Duration
	betweenBytes time.Duration
	first        bool
}

// newTimeoutReader wraps r with per-Read deadlines. Returns r unchanged
// when both budgets are zero.
func newTimeoutReader(ctx context.Context, r io.ReadCloser, respStart, betweenBytes time.Duration) io.ReadCloser {
	if respStart <= 0 && betweenBytes <= 0 {
		return r
	}
	return &timeoutReader{ReadCloser: r, ctx: ctx, respStart: respStart, betweenBytes: betweenBytes, first: true}
}

type readResult struct {
	n   int
	err error
}

func (t *timeoutReader) Read(p []byte) (int, error) {
	budget := t.betweenBytes
	if t.first {
		budget = t.respStart
		t.first = false
	}
	if budget <= 0 {
		return t.ReadCloser.Read(p)
	}

	resultCh := make(chan readResult, 1)
	go func() {
		n, err := t.ReadCloser.Read(p)
		resultCh <- readResult{n, err}
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		return res.n, res.err
	case <-timer.C:
		_ = t.ReadCloser.Close()
		return 0, reckerr.NewTimeout(reckerr.TimeoutBetweenBytes, context.DeadlineExceeded)
	case <-t.ctx.Done():
		_ = t.ReadCloser.Close()
		return 0, reckerr.NewTimeout(reckerr.TimeoutBetweenBytes, t.ctx.Err())
	}
}
