package main

import (
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	baseURL       = "http://127.0.0.1:18090"
	numWorkers    = 25
	testDuration  = 10 * time.Second
	numDashboards = 10
)

var slugs = func() []string {
	out := make([]string, numDashboards)
	for i := range out {
		out[i] = fmt.Sprintf("dash-%d", i+1)
	}
	return out
}()

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func main() {
	fmt.Println("=== DSD Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s | Dashboards: %d\n\n", numWorkers, testDuration, numDashboards)

	// Wait for server
	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/dashboards")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	// Phase 1: start watching dashboards. The load requests are throttled
	// server-side, so a high request rate here is deliberate.
	fmt.Println("\n--- Phase 1: Loading dashboards (POST /load) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doLoad(rng)
	})

	// Give the initial loads time to settle.
	fmt.Println("\nWaiting 2s for loads to settle...")
	time.Sleep(2 * time.Second)

	// Phase 2: read-heavy load against the watched set
	fmt.Println("\n--- Phase 2: Read-heavy load (10% POST, 90% GET) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.10:
			return doLoad(rng)
		case r < 0.55:
			return doGetDashboard(rng)
		default:
			return doGetDashboards()
		}
	})

	// Phase 3: mixed load with state toggles
	fmt.Println("\n--- Phase 3: Mixed load with toggles ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.10:
			return doLoad(rng)
		case r < 0.20:
			return doToggleFullscreen(rng)
		case r < 0.60:
			return doGetDashboard(rng)
		default:
			return doGetDashboards()
		}
	})
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		avg := avgDuration(s.latencies)
		p50 := percentile(s.latencies, 0.50)
		p95 := percentile(s.latencies, 0.95)
		p99 := percentile(s.latencies, 0.99)

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, fmtDur(avg), fmtDur(p50), fmtDur(p95), fmtDur(p99))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func doLoad(rng *rand.Rand) result {
	slug := slugs[rng.Intn(len(slugs))]
	start := time.Now()
	resp, err := httpClient.Post(baseURL+"/load?slug="+url.QueryEscape(slug), "application/json", nil)
	lat := time.Since(start)
	if err != nil {
		return result{"POST /load", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"POST /load", resp.StatusCode, lat, resp.StatusCode != 202}
}

func doGetDashboards() result {
	start := time.Now()
	resp, err := httpClient.Get(baseURL + "/dashboards")
	lat := time.Since(start)
	if err != nil {
		return result{"GET /dashboards", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET /dashboards", resp.StatusCode, lat, resp.StatusCode != 200}
}

func doGetDashboard(rng *rand.Rand) result {
	slug := slugs[rng.Intn(len(slugs))]
	start := time.Now()
	resp, err := httpClient.Get(baseURL + "/dashboard?slug=" + url.QueryEscape(slug))
	lat := time.Since(start)
	if err != nil {
		return result{"GET /dashboard", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	// 404 is expected while a dashboard's first load is still in flight.
	ok := resp.StatusCode == 200 || resp.StatusCode == 404
	return result{"GET /dashboard", resp.StatusCode, lat, !ok}
}

func doToggleFullscreen(rng *rand.Rand) result {
	slug := slugs[rng.Intn(len(slugs))]
	start := time.Now()
	resp, err := httpClient.Post(baseURL+"/fullscreen?slug="+url.QueryEscape(slug), "application/json", nil)
	lat := time.Since(start)
	if err != nil {
		return result{"POST /fullscreen", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	ok := resp.StatusCode == 200 || resp.StatusCode == 404
	return result{"POST /fullscreen", resp.StatusCode, lat, !ok}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
