package recker

import (
	"sync"
	"time"

	"github.com/forattini-dev/recker/internal/recker"
	"go.uber.org/multierr"
)

// RequestSpec describes one request to submit as part of a Batch call.
type RequestSpec struct {
	Method  recker.Method
	Path    string
	Options []RequestOption
}

// BatchResult is one batch entry: exactly one of Response/Err is set.
type BatchResult struct {
	Response *recker.Response
	Err      error
}

// BatchOptions controls how a Batch call fans requests out.
type BatchOptions struct {
	// Concurrency bounds how many of this batch's requests run at once;
	// 0 means unbounded (within this batch — the client's scheduler still
	// enforces its own global/per-domain caps across the whole process).
	Concurrency int
}

// BatchStats summarizes one Batch call.
type BatchStats struct {
	Total      int
	Successful int
	Failed     int
	Duration   time.Duration
	// Err aggregates every failed result's error via multierr, so a
	// caller that only wants a single pass/fail signal for the whole
	// batch doesn't have to range over Results itself.
	Err error
}

// Batch submits every spec, respecting opts.Concurrency within this
// batch (the scheduler's own admission limits still apply across
// batches and other concurrent calls). Order is preserved in the
// returned results regardless of completion order, the same
// worker-pool-over-a-job-channel shape used for any bounded fan-out:
// a fixed number of workers pull indices off a channel and each writes
// its own result slot, so no locking is needed on the results slice
// itself.
func (c *Client) Batch(specs []RequestSpec, opts BatchOptions) ([]BatchResult, BatchStats) {
	start := time.Now()
	results := make([]BatchResult, len(specs))
	stats := BatchStats{Total: len(specs)}
	if len(specs) == 0 {
		stats.Duration = time.Since(start)
		return results, stats
	}

	workers := opts.Concurrency
	if workers <= 0 || workers > len(specs) {
		workers = len(specs)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				spec := specs[idx]
				handle := c.do(spec.Method, spec.Path, spec.Options)
				resp, err := handle.Response()
				results[idx] = BatchResult{Response: resp, Err: err}
			}
		}()
	}
	for i := range specs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, r := range results {
		if r.Err != nil {
			stats.Failed++
			stats.Err = multierr.Append(stats.Err, r.Err)
		} else {
			stats.Successful++
		}
	}
	stats.Duration = time.Since(start)
	return results, stats
}
