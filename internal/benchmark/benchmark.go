package benchmark

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"typedkv/pkg/typed"
)

// Workloads understood by Run. Each request writes a typed value and reads it back.
const (
	OpString = "string"
	OpInt    = "int"
	OpFloat  = "float"
	OpBool   = "bool"
	OpHash   = "hash"
	OpList   = "list"
	OpSet    = "set"
	OpZSet   = "zset"
)

// DefaultOps is the workload list used when none is given
var DefaultOps = []string{OpString, OpInt, OpFloat, OpBool, OpHash, OpList, OpSet, OpZSet}

// Result is the outcome of one workload
type Result struct {
	Op         string
	Requests   int64
	Duration   time.Duration
	Latencies  []time.Duration
	Errors     int64
	Throughput float64
	P50Latency time.Duration
	P95Latency time.Duration
	P99Latency time.Duration
}

// Config holds the configuration for benchmarking
type Config struct {
	Requests    int
	Concurrency int
	Ops         []string
	DataSize    int
	Fields      int
	KeySpace    int
	KeyPrefix   string
	TTL         time.Duration
	RandomData  bool
}

func (c Config) withDefaults() Config {
	if c.Requests <= 0 {
		c.Requests = 1000
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.Concurrency > c.Requests {
		c.Concurrency = c.Requests
	}
	if len(c.Ops) == 0 {
		c.Ops = DefaultOps
	}
	if c.DataSize <= 0 {
		c.DataSize = 2
	}
	if c.Fields <= 0 {
		c.Fields = 10
	}
	if c.KeySpace <= 0 {
		c.KeySpace = 1000
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "bench"
	}
	return c
}

// ValidOp reports whether op names a known workload
func ValidOp(op string) bool {
	for _, o := range DefaultOps {
		if o == op {
			return true
		}
	}
	return false
}

// Run executes every workload in turn against acc
func Run(ctx context.Context, acc *typed.Accessor, config Config) []Result {
	config = config.withDefaults()
	results := make([]Result, 0, len(config.Ops))

	for _, op := range config.Ops {
		if ctx.Err() != nil {
			break
		}
		results = append(results, runOp(ctx, acc, config, op))
	}
	return results
}

func runOp(ctx context.Context, acc *typed.Accessor, config Config, op string) Result {
	result := Result{
		Op:        op,
		Requests:  int64(config.Requests),
		Latencies: make([]time.Duration, 0, config.Requests),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	start := time.Now()

	requestsPerWorker := config.Requests / config.Concurrency
	remainingRequests := config.Requests % config.Concurrency

	for i := 0; i < config.Concurrency; i++ {
		workerRequests := requestsPerWorker
		if i < remainingRequests {
			workerRequests++
		}

		wg.Add(1)
		go func(workerID, reqs int) {
			defer wg.Done()
			w := runWorker(ctx, acc, config, op, workerID, reqs)

			atomic.AddInt64(&result.Errors, w.Errors)
			mu.Lock()
			result.Latencies = append(result.Latencies, w.Latencies...)
			mu.Unlock()
		}(i, workerRequests)
	}

	wg.Wait()
	result.Duration = time.Since(start)
	if secs := result.Duration.Seconds(); secs > 0 {
		result.Throughput = float64(result.Requests) / secs
	}

	if len(result.Latencies) > 0 {
		sort.Slice(result.Latencies, func(i, j int) bool {
			return result.Latencies[i] < result.Latencies[j]
		})
		result.P50Latency = percentile(result.Latencies, 50)
		result.P95Latency = percentile(result.Latencies, 95)
		result.P99Latency = percentile(result.Latencies, 99)
	}
	return result
}

func percentile(sorted []time.Duration, p int) time.Duration {
	return sorted[len(sorted)*p/100]
}

type workerResult struct {
	Errors    int64
	Latencies []time.Duration
}

func runWorker(ctx context.Context, acc *typed.Accessor, config Config, op string, workerID, requests int) workerResult {
	result := workerResult{Latencies: make([]time.Duration, 0, requests)}
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for i := 0; i < requests; i++ {
		if ctx.Err() != nil {
			result.Errors += int64(requests - i)
			break
		}
		// keys are partitioned by worker
		key := fmt.Sprintf("%s:%s:%d:%d", config.KeyPrefix, op, workerID, rng.Intn(config.KeySpace))

		start := time.Now()
		if err := roundTrip(ctx, acc, config, op, key, rng); err != nil {
			result.Errors++
			continue
		}
		result.Latencies = append(result.Latencies, time.Since(start))
	}
	return result
}

// roundTrip writes one value of the workload's type at key and reads it back
func roundTrip(ctx context.Context, acc *typed.Accessor, config Config, op, key string, rng *rand.Rand) error {
	value := func() string { return generateValue(config.DataSize, config.RandomData, rng) }

	switch op {
	case OpString:
		if err := acc.SetString(ctx, key, value(), config.TTL); err != nil {
			return err
		}
		_, err := acc.GetString(ctx, key)
		return err
	case OpInt:
		if err := acc.SetInt(ctx, key, rng.Int63(), config.TTL); err != nil {
			return err
		}
		_, err := acc.GetInt(ctx, key)
		return err
	case OpFloat:
		if err := acc.SetFloat(ctx, key, rng.Float64(), config.TTL); err != nil {
			return err
		}
		_, err := acc.GetFloat(ctx, key)
		return err
	case OpBool:
		if err := acc.SetBool(ctx, key, rng.Intn(2) == 1, config.TTL); err != nil {
			return err
		}
		_, err := acc.GetBool(ctx, key)
		return err
	case OpHash:
		c := typed.Collection{}
		for f := 0; f < config.Fields; f++ {
			c = c.With("field:"+strconv.Itoa(f), value())
		}
		if err := acc.SetHash(ctx, key, c, config.TTL); err != nil {
			return err
		}
		_, err := acc.GetHash(ctx, key)
		return err
	case OpList, OpSet, OpZSet:
		values := make([]string, config.Fields)
		for f := range values {
			values[f] = value() + strconv.Itoa(f)
		}
		c := typed.List(values...)
		var err error
		switch op {
		case OpList:
			if err = acc.SetList(ctx, key, c, config.TTL); err == nil {
				_, err = acc.GetList(ctx, key)
			}
		case OpSet:
			if err = acc.SetSet(ctx, key, c, config.TTL); err == nil {
				_, err = acc.GetSet(ctx, key)
			}
		default:
			if err = acc.SetSortedSet(ctx, key, c, config.TTL); err == nil {
				_, err = acc.GetSortedSet(ctx, key)
			}
		}
		return err
	default:
		return fmt.Errorf("unknown workload %q", op)
	}
}

func generateValue(size int, random bool, rng *rand.Rand) string {
	if random {
		const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
		result := make([]byte, size)
		for i := range result {
			result[i] = charset[rng.Intn(len(charset))]
		}
		return string(result)
	}
	return strings.Repeat("x", size)
}

// PrintOptions selects the report layout
type PrintOptions struct {
	Quiet       bool
	CSV         bool
	LatencyHist bool
}

// PrintResults writes a report of results to w
func PrintResults(w io.Writer, results []Result, opts PrintOptions) {
	if opts.CSV {
		printCSVResults(w, results)
		return
	}

	if !opts.Quiet {
		fmt.Fprintf(w, "\nBenchmark Results:\n")
		fmt.Fprintf(w, "=================\n")
	}

	for _, result := range results {
		if opts.Quiet {
			fmt.Fprintf(w, "%s: %.2f round trips per second, p50=%s\n",
				result.Op, result.Throughput, formatDuration(result.P50Latency))
			continue
		}
		fmt.Fprintf(w, "%s: %.2f round trips per second\n", result.Op, result.Throughput)
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(result.Duration))
		fmt.Fprintf(w, "  Requests: %d\n", result.Requests)
		fmt.Fprintf(w, "  Errors: %d\n", result.Errors)
		fmt.Fprintf(w, "  Latency percentiles:\n")
		fmt.Fprintf(w, "    p50: %s\n", formatDuration(result.P50Latency))
		fmt.Fprintf(w, "    p95: %s\n", formatDuration(result.P95Latency))
		fmt.Fprintf(w, "    p99: %s\n", formatDuration(result.P99Latency))

		if opts.LatencyHist && len(result.Latencies) > 0 {
			printLatencyHistogram(w, result.Latencies)
		}
		fmt.Fprintf(w, "\n")
	}

	if !opts.Quiet {
		printSummary(w, results)
	}
}

func printCSVResults(w io.Writer, results []Result) {
	fmt.Fprintf(w, "Op,Requests,Errors,Duration,Throughput,P50,P95,P99\n")
	for _, result := range results {
		fmt.Fprintf(w, "%s,%d,%d,%s,%.2f,%s,%s,%s\n",
			result.Op,
			result.Requests,
			result.Errors,
			formatDuration(result.Duration),
			result.Throughput,
			formatDuration(result.P50Latency),
			formatDuration(result.P95Latency),
			formatDuration(result.P99Latency))
	}
}

func printLatencyHistogram(w io.Writer, latencies []time.Duration) {
	buckets := []time.Duration{
		10 * time.Microsecond,
		100 * time.Microsecond,
		1 * time.Millisecond,
		10 * time.Millisecond,
		100 * time.Millisecond,
		1 * time.Second,
	}

	fmt.Fprintf(w, "  Latency histogram:\n")
	for _, bucket := range buckets {
		// latencies are sorted
		count := sort.Search(len(latencies), func(i int) bool { return latencies[i] > bucket })
		percentage := float64(count) / float64(len(latencies)) * 100
		fmt.Fprintf(w, "    <=%s: %.1f%%\n", formatDuration(bucket), percentage)
	}
}

func printSummary(w io.Writer, results []Result) {
	if len(results) == 0 {
		return
	}

	var totalRequests int64
	var totalErrors int64
	var totalThroughput float64

	for _, result := range results {
		totalRequests += result.Requests
		totalErrors += result.Errors
		totalThroughput += result.Throughput
	}

	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Total requests: %d\n", totalRequests)
	fmt.Fprintf(w, "  Total errors: %d\n", totalErrors)
	fmt.Fprintf(w, "  Error rate: %.2f%%\n", float64(totalErrors)/float64(totalRequests)*100)
	fmt.Fprintf(w, "  Average throughput: %.2f round trips/second\n", totalThroughput/float64(len(results)))
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%.3f ns", float64(d.Nanoseconds()))
	case d < time.Millisecond:
		return fmt.Sprintf("%.3f µs", float64(d.Nanoseconds())/1e3)
	case d < time.Second:
		return fmt.Sprintf("%.3f ms", float64(d.Microseconds())/1e3)
	default:
		return fmt.Sprintf("%.3f s", d.Seconds())
	}
}
