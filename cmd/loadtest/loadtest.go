package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	MaxPage     int
	Queries     []string
}

// searchReply is the subset of the search response the load test reads.
type searchReply struct {
	Count    int  `json:"count"`
	CacheHit bool `json:"cache_hit"`
}

type Stats struct {
	total     atomic.Int64
	failed    atomic.Int64
	cacheHits atomic.Int64
	empty     atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func newStats() *Stats {
	return &Stats{codes: make(map[int]int64)}
}

func (s *Stats) Total() int64 { return s.total.Load() }

func (s *Stats) record(d time.Duration, code int, reply *searchReply) {
	s.total.Add(1)
	if reply == nil {
		s.failed.Add(1)
	} else {
		if reply.CacheHit {
			s.cacheHits.Add(1)
		}
		if reply.Count == 0 {
			s.empty.Add(1)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if code != 0 {
		s.codes[code]++
	}
	if reply != nil {
		s.latencies = append(s.latencies, d)
	}
}

// Run issues requests from cfg.Concurrency workers until ctx is done.
func Run(ctx context.Context, cfg Config) *Stats {
	stats := newStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	maxPage := max(cfg.MaxPage, 1)

	var g errgroup.Group
	for w := 0; w < cfg.Concurrency; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				query := cfg.Queries[i%len(cfg.Queries)]
				page := 1 + i%maxPage
				start := time.Now()
				code, reply := search(ctx, client, cfg.BaseURL, query, page)
				if ctx.Err() != nil && reply == nil {
					return nil
				}
				stats.record(time.Since(start), code, reply)
			}
			return nil
		})
	}
	g.Wait()
	return stats
}

// search returns the status code and the decoded reply, which is nil for
// transport errors and non-2xx answers.
func search(ctx context.Context, client *http.Client, base, query string, page int) (int, *searchReply) {
	u := fmt.Sprintf("%s/api/v1/search?q=%s&page=%d", base, url.QueryEscape(query), page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	var reply searchReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, &reply
}

// Report prints totals, latency percentiles and status codes.
func (s *Stats) Report(w io.Writer, elapsed time.Duration) {
	total, failed := s.total.Load(), s.failed.Load()
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Successful:      %d\n", total-failed)
	fmt.Fprintf(w, "Errors:          %d\n", failed)
	if total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/elapsed.Seconds())
	}
	if ok := total - failed; ok > 0 {
		fmt.Fprintf(w, "Cache Hit Rate:  %.2f%%\n", float64(s.cacheHits.Load())/float64(ok)*100)
		fmt.Fprintf(w, "Empty Results:   %d\n", s.empty.Load())
	}

	s.mu.Lock()
	latencies := slices.Clone(s.latencies)
	codes := make([]int, 0, len(s.codes))
	for c := range s.codes {
		codes = append(codes, c)
	}
	counts := make(map[int]int64, len(s.codes))
	for c, n := range s.codes {
		counts[c] = n
	}
	s.mu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		fmt.Fprintln(w, "\n=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", sum/time.Duration(len(latencies)))
		for _, p := range []float64{50, 90, 95, 99} {
			fmt.Fprintf(w, "P%-5v %s\n", p, percentile(latencies, p))
		}
		fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])
	}

	fmt.Fprintln(w, "\n=== Status Codes ===")
	slices.Sort(codes)
	for _, c := range codes {
		fmt.Fprintf(w, "  %d: %d\n", c, counts[c])
	}
}

// percentile uses the nearest-rank method over sorted.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
