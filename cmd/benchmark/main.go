// Package main is the entry point for reckbench, a load-test harness
// driving the scheduler and retry engine through the same recker.Client a
// real caller would use.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/forattini-dev/recker/client"
	"github.com/forattini-dev/recker/internal/config"
	"github.com/forattini-dev/recker/internal/recker"
	"github.com/spf13/cobra"
)

var (
	// Used to allow mocking in tests.
	osExit = os.Exit
)

var (
	benchBaseURL     string
	benchPath        string
	benchMethod      string
	benchRequests    int
	benchConcurrency int
	benchTimeout     time.Duration
	benchMaxAttempts int
)

var rootCmd = &cobra.Command{
	Use:   "reckbench",
	Short: "Load-test a server through recker's scheduler and retry engine",
	RunE:  runBenchmark,
}

func init() {
	rootCmd.Flags().StringVar(&benchBaseURL, "base-url", "", "target base URL (required)")
	rootCmd.Flags().StringVar(&benchPath, "path", "/", "request path")
	rootCmd.Flags().StringVar(&benchMethod, "method", "GET", "request method")
	rootCmd.Flags().IntVar(&benchRequests, "requests", 100, "total requests to issue")
	rootCmd.Flags().IntVar(&benchConcurrency, "concurrency", 10, "max requests admitted by the scheduler at once")
	rootCmd.Flags().DurationVar(&benchTimeout, "timeout", 10*time.Second, "whole-request timeout")
	rootCmd.Flags().IntVar(&benchMaxAttempts, "retry-max-attempts", 1, "retry attempt cap (1 disables retry)")
	_ = rootCmd.MarkFlagRequired("base-url")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		osExit(1)
	}
}

// stats accumulates per-request outcomes under a mutex; requests run
// concurrently across a fixed worker pool, the same job-channel shape
// client.Batch uses.
type stats struct {
	mu        sync.Mutex
	latencies []time.Duration
	successes int64
	failures  int64
}

func (s *stats) record(d time.Duration, ok bool) {
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.mu.Unlock()
	if ok {
		atomic.AddInt64(&s.successes, 1)
	} else {
		atomic.AddInt64(&s.failures, 1)
	}
}

func (s *stats) percentile(p float64) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(s.latencies))
	copy(sorted, s.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

// dispatchOne issues one request using the verb method matching
// benchMethod, defaulting to GET for anything else.
func dispatchOne(c *client.Client, method, path string) (*recker.Response, error) {
	switch strings.ToUpper(method) {
	case "POST":
		return c.Post(path).Response()
	case "PUT":
		return c.Put(path).Response()
	case "DELETE":
		return c.Delete(path).Response()
	case "HEAD":
		return c.Head(path).Response()
	default:
		return c.Get(path).Response()
	}
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	cfg.BaseURL = benchBaseURL
	cfg.Timeout.Request = benchTimeout
	cfg.Retry.MaxAttempts = benchMaxAttempts
	cfg.Concurrency.Max = benchConcurrency
	cfg.ThrowOnHTTPError = false

	c, err := client.New(cfg)
	if err != nil {
		return fmt.Errorf("building client: %w", err)
	}

	jobs := make(chan int)
	results := &stats{}

	workers := benchConcurrency
	if workers <= 0 || workers > benchRequests {
		workers = benchRequests
	}
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	started := time.Now()
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for range jobs {
				start := time.Now()
				resp, err := dispatchOne(c, benchMethod, benchPath)
				ok := err == nil && resp != nil && resp.OK()
				if resp != nil {
					resp.Discard()
				}
				results.record(time.Since(start), ok)
			}
		}()
	}
	for i := 0; i < benchRequests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	total := time.Since(started)

	fmt.Printf("requests=%d successes=%d failures=%d duration=%s\n",
		benchRequests, results.successes, results.failures, total)
	fmt.Printf("p50=%s p95=%s p99=%s\n",
		results.percentile(0.50), results.percentile(0.95), results.percentile(0.99))
	if benchRequests > 0 {
		fmt.Printf("throughput=%.1f req/s\n", float64(benchRequests)/total.Seconds())
	}
	return nil
}
