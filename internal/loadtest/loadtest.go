// Package loadtest drives concurrent search requests against a running
// ranking API and summarises throughput, latency percentiles and status
// codes.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultQueries are news-corpus queries used when none are given.
var DefaultQueries = []string{
	"interest rates",
	"Federal Reserve",
	"oil prices",
	"trade deficit",
	"presidential election",
	"stock market",
	"nuclear weapons",
	"earthquake damage",
	"foreign exchange",
	"corn harvest",
}

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Limit       int
	Queries     []string
	// Tick is called from each worker after every completed request.
	Tick func()
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64

	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 1024),
		statusCodes: make(map[int]int64),
	}
}

// Record counts one request. Transport errors count as failures without a
// latency sample.
func (s *Stats) Record(d time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}

	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.statusCodes[statusCode]++
	s.mu.Unlock()
}

// Summary is a point-in-time digest of Stats.
type Summary struct {
	Total       int64
	Success     int64
	Errors      int64
	Elapsed     time.Duration
	Min         time.Duration
	Avg         time.Duration
	P50         time.Duration
	P90         time.Duration
	P95         time.Duration
	P99         time.Duration
	Max         time.Duration
	StdDev      time.Duration
	StatusCodes map[int]int64
}

func (s Summary) ErrorRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Errors) / float64(s.Total) * 100
}

func (s Summary) RequestsPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Total) / s.Elapsed.Seconds()
}

func (s *Stats) Summarize(elapsed time.Duration) Summary {
	s.mu.Lock()
	latencies := make([]time.Duration, len(s.latencies))
	copy(latencies, s.latencies)
	codes := make(map[int]int64, len(s.statusCodes))
	for c, n := range s.statusCodes {
		codes[c] = n
	}
	s.mu.Unlock()

	sum := Summary{
		Total:       s.totalRequests.Load(),
		Success:     s.successCount.Load(),
		Errors:      s.errorCount.Load(),
		Elapsed:     elapsed,
		StatusCodes: codes,
	}
	if len(latencies) == 0 {
		return sum
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var total time.Duration
	for _, l := range latencies {
		total += l
	}
	sum.Avg = total / time.Duration(len(latencies))
	sum.Min = latencies[0]
	sum.Max = latencies[len(latencies)-1]
	sum.P50 = Percentile(latencies, 50)
	sum.P90 = Percentile(latencies, 90)
	sum.P95 = Percentile(latencies, 95)
	sum.P99 = Percentile(latencies, 99)

	var squared float64
	for _, l := range latencies {
		diff := float64(l - sum.Avg)
		squared += diff * diff
	}
	sum.StdDev = time.Duration(math.Sqrt(squared / float64(len(latencies))))
	return sum
}

// Percentile uses the nearest-rank method on an ascending slice.
func Percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Run issues GET /api/v1/search requests from cfg.Concurrency workers until
// cfg.Duration elapses or ctx is cancelled. Each worker cycles through the
// queries starting at its own offset.
func Run(ctx context.Context, client *http.Client, cfg Config) (Summary, error) {
	if cfg.Concurrency < 1 {
		return Summary{}, fmt.Errorf("concurrency must be positive, got %d", cfg.Concurrency)
	}
	queries := cfg.Queries
	if len(queries) == 0 {
		queries = DefaultQueries
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return Summary{}, fmt.Errorf("invalid base url: %w", err)
	}
	base = base.JoinPath("/api/v1/search")

	logger := slog.Default().With("component", "loadtest")
	logger.Info("load test starting", "target", cfg.BaseURL, "concurrency", cfg.Concurrency, "duration", cfg.Duration)

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	stats := NewStats()
	start := time.Now()
	var g errgroup.Group
	for w := 0; w < cfg.Concurrency; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				target := *base
				q := url.Values{"q": {queries[i%len(queries)]}}
				if cfg.Limit > 0 {
					q.Set("limit", fmt.Sprint(cfg.Limit))
				}
				target.RawQuery = q.Encode()
				d, code, err := fetch(ctx, client, target.String())
				if ctx.Err() != nil {
					return nil
				}
				stats.Record(d, code, err)
				if cfg.Tick != nil {
					cfg.Tick()
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	sum := stats.Summarize(time.Since(start))
	logger.Info("load test finished", "requests", sum.Total, "errors", sum.Errors, "rps", sum.RequestsPerSecond())
	if sum.Total == 0 {
		return sum, fmt.Errorf("no requests completed against %s", cfg.BaseURL)
	}
	return sum, nil
}

func fetch(ctx context.Context, client *http.Client, target string) (time.Duration, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, 0, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return time.Since(start), 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return time.Since(start), resp.StatusCode, nil
}
