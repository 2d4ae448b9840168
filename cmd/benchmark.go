package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"typedkv/internal/benchmark"
	redisbackend "typedkv/pkg/backend/redis"
	"typedkv/pkg/typed"

	"github.com/spf13/cobra"
)

func newBenchmarkCmd(a *app) *cobra.Command {
	benchmarkCmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Measure typed write and read round trips",
		Long: `Measure typed round trips against a store, similar to redis-benchmark.

Every request writes a value through the typed accessor (delete, write,
expire) and reads it back with its type checked.`,
		Example: `  typedkv benchmark --requests 10000 --concurrency 10
  typedkv benchmark --ops string,hash --fields 50
  typedkv benchmark --latency-hist --requests 1000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBenchmark(cmd)
		},
	}

	// connection
	addClientFlags(benchmarkCmd)

	// workload
	benchmarkCmd.Flags().Int("requests", 10000, "Round trips per workload")
	benchmarkCmd.Flags().IntP("concurrency", "c", 50, "Number of parallel workers")
	benchmarkCmd.Flags().String("ops", strings.Join(benchmark.DefaultOps, ","), "Comma-separated workloads to run")
	benchmarkCmd.Flags().Int("data-size", 2, "Size of generated values in bytes")
	benchmarkCmd.Flags().Int("fields", 10, "Entries per collection value")
	benchmarkCmd.Flags().Int("keyspace", 1000, "Keys per worker and workload")
	benchmarkCmd.Flags().String("key-prefix", "bench", "Prefix of generated keys")
	benchmarkCmd.Flags().Duration("ttl", 0, "Expire written keys after this long")
	benchmarkCmd.Flags().Bool("random-data", false, "Use random data for values")

	// output
	benchmarkCmd.Flags().BoolP("quiet", "q", false, "Quiet mode (only show summary)")
	benchmarkCmd.Flags().Bool("csv", false, "Output in CSV format")
	benchmarkCmd.Flags().Bool("latency-hist", false, "Show latency histogram")

	return benchmarkCmd
}

func (a *app) runBenchmark(cmd *cobra.Command) error {
	config := benchmark.Config{
		Requests:    getIntFlag(cmd, "requests", 10000),
		Concurrency: getIntFlag(cmd, "concurrency", 50),
		DataSize:    getIntFlag(cmd, "data-size", 2),
		Fields:      getIntFlag(cmd, "fields", 10),
		KeySpace:    getIntFlag(cmd, "keyspace", 1000),
		KeyPrefix:   getStringFlag(cmd, "key-prefix", "bench"),
		TTL:         getDurationFlag(cmd, "ttl", 0),
		RandomData:  getBoolFlag(cmd, "random-data"),
	}
	for _, op := range strings.Split(getStringFlag(cmd, "ops", ""), ",") {
		if op = strings.TrimSpace(op); op == "" {
			continue
		}
		if !benchmark.ValidOp(op) {
			return fmt.Errorf("unknown workload %q (one of %s)", op, strings.Join(benchmark.DefaultOps, ", "))
		}
		config.Ops = append(config.Ops, op)
	}
	opts := benchmark.PrintOptions{
		Quiet:       getBoolFlag(cmd, "quiet"),
		CSV:         getBoolFlag(cmd, "csv"),
		LatencyHist: getBoolFlag(cmd, "latency-hist"),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, a.cfg.Client.Timeout)
	client, err := redisbackend.New(dialCtx, a.cfg.Client.RedisURL)
	cancel()
	if err != nil {
		return err
	}
	defer client.Close()

	out := cmd.OutOrStdout()
	if !opts.Quiet && !opts.CSV {
		fmt.Fprintf(out, "Typed Benchmark\n")
		fmt.Fprintf(out, "===============\n")
		fmt.Fprintf(out, "Store: %s\n", a.cfg.Client.RedisURL)
		fmt.Fprintf(out, "Requests: %d\n", config.Requests)
		fmt.Fprintf(out, "Concurrency: %d\n", config.Concurrency)
		fmt.Fprintf(out, "Workloads: %s\n", strings.Join(config.Ops, ", "))
		fmt.Fprintf(out, "Data size: %d bytes\n", config.DataSize)
		fmt.Fprintf(out, "Fields: %d\n", config.Fields)
	}

	start := time.Now()
	results := benchmark.Run(ctx, typed.New(client), config)
	benchmark.PrintResults(out, results, opts)
	if ctx.Err() != nil {
		return fmt.Errorf("benchmark interrupted after %s", time.Since(start).Round(time.Millisecond))
	}
	return nil
}

func getIntFlag(cmd *cobra.Command, name string, defaultValue int) int {
	if value, err := cmd.Flags().GetInt(name); err == nil {
		return value
	}
	return defaultValue
}
