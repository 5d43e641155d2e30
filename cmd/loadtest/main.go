// Command loadtest drives the search API with concurrent queries and reports
// throughput, latency percentiles and the cache hit rate.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

var defaultQueries = []string{
	"apple",
	"apple pie",
	"chocolate and cake",
	"vanilla or strawberry",
	"cake and not chocolate",
	"not (apple or cake)",
	"cream and (berry or lemon)",
	"history and not war",
	"united states",
	"world war and not france",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	maxPage := flag.Int("max-page", 3, "pages requested are drawn from 1..max-page")
	queryFile := flag.String("queries", "", "file with one query per line (default: built-in set)")
	flag.Parse()

	queries := defaultQueries
	if *queryFile != "" {
		q, err := readQueries(*queryFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading queries: %v\n", err)
			os.Exit(1)
		}
		queries = q
	}

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		MaxPage:     *maxPage,
		Queries:     queries,
	}
	fmt.Println("=== wikisearch load test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique\n\n", len(cfg.Queries))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()
	stats := Run(ctx, cfg)
	stats.Report(os.Stdout, cfg.Duration)
	if stats.Total() == 0 {
		fmt.Println("\nWARNING: no requests completed. Is the service running?")
		os.Exit(1)
	}
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" && !strings.HasPrefix(q, "#") {
			out = append(out, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s holds no queries", path)
	}
	return out, nil
}
