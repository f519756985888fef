package db

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dGo/cmd/util"
	"github.com/ValentinKolb/dGo/rpc/client"
	"github.com/ValentinKolb/dGo/rpc/common"
	vmetrics "github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for the driver",
		Long:    "Runs queries, self committing mutations and transactions concurrently through the pool. With --local the pool talks to an in-process oracle, which measures the driver alone.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfNumThreads = 10
	perfKeySpread  = 100
	perfSkip       = make([]string, 0)

	// latency timers of every test
	perfTimers = gometrics.NewRegistry()
)

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. query,conflict)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different nodes the mutations touch, fewer nodes cause more conflicts"))
	key = "local"
	perfTestCmd.Flags().Bool(key, false, util.WrapString("Benchmark against an in-process oracle instead of a server"))
	key = "metrics"
	perfTestCmd.Flags().Bool(key, false, util.WrapString("Print the driver metrics in prometheus format after the run"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfKeySpread = max(1, viper.GetInt("keys"))
	perfNumThreads = max(1, viper.GetInt("threads"))
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// perfTest is one benchmark, op runs a single iteration
type perfTest struct {
	name string
	op   func(ctx context.Context, i int) error
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for dGo")

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d, Local: %t\n", perfNumThreads, viper.GetBool("local"))
	fmt.Println()

	fmt.Println("starting tests...")

	var aborted atomic.Int64
	tests := []perfTest{
		{name: "check", op: func(ctx context.Context, _ int) error {
			return withClient(ctx, func(c *client.Client) error {
				_, err := c.CheckVersion(ctx)
				return err
			})
		}},
		{name: "query", op: func(ctx context.Context, i int) error {
			return withClient(ctx, func(c *client.Client) error {
				_, err := c.QueryWithVars(ctx, `query q($id: string) { q(func: uid($id)) { name } }`,
					map[string]string{"$id": node(i)})
				return err
			})
		}},
		{name: "mutate", op: func(ctx context.Context, i int) error {
			return withClient(ctx, func(c *client.Client) error {
				_, err := c.Mutate(ctx, setName(i))
				return err
			})
		}},
		{name: "txn-readonly", op: func(ctx context.Context, i int) error {
			txn, err := pool.NewTxn(ctx)
			if err != nil {
				return err
			}
			defer txn.Discard(ctx)
			for j := 0; j < 3; j++ {
				if _, err := txn.Query(ctx, fmt.Sprintf(`{ q(func: uid(%s)) { name } }`, node(i+j))); err != nil {
					return err
				}
			}
			return txn.Commit(ctx)
		}},
		{name: "txn", op: func(ctx context.Context, i int) error {
			txn, err := pool.NewTxn(ctx)
			if err != nil {
				return err
			}
			defer txn.Discard(ctx)
			if _, err := txn.Query(ctx, fmt.Sprintf(`{ q(func: uid(%s)) { name } }`, node(i))); err != nil {
				return err
			}
			if _, err := txn.Mutate(ctx, setName(i)); err != nil {
				return err
			}
			err = txn.Commit(ctx)
			if common.IsAborted(err) {
				aborted.Add(1)
				return nil
			}
			return err
		}},
		{name: "conflict", op: func(ctx context.Context, i int) error {
			// every transaction writes the same node
			txn, err := pool.NewTxn(ctx)
			if err != nil {
				return err
			}
			defer txn.Discard(ctx)
			if _, err := txn.Mutate(ctx, setName(0)); err != nil {
				return err
			}
			err = txn.Commit(ctx)
			if common.IsAborted(err) {
				aborted.Add(1)
				return nil
			}
			return err
		}},
	}

	results := make(map[string]testing.BenchmarkResult)
	for _, test := range tests {
		aborted.Store(0)
		result := benchmark(test)
		results[test.name] = result
		printResult(test.name, result, aborted.Load())
	}

	fmt.Println()
	fmt.Println("Latencies:")
	perfTimers.Each(func(name string, i interface{}) {
		if t, ok := i.(gometrics.Timer); ok && t.Count() > 0 {
			s := t.Snapshot()
			ps := s.Percentiles([]float64{0.5, 0.99})
			fmt.Printf("%-20sp50=%s p99=%s max=%s\n", name, time.Duration(ps[0]), time.Duration(ps[1]), time.Duration(s.Max()))
		}
	})

	if viper.GetBool("metrics") {
		fmt.Println()
		vmetrics.WritePrometheus(os.Stdout, false)
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// benchmark runs test in parallel and records the latency of every iteration
func benchmark(test perfTest) testing.BenchmarkResult {
	return testing.Benchmark(func(b *testing.B) {
		if shouldSkip(test.name) {
			return
		}
		timer := gometrics.GetOrRegisterTimer(test.name, perfTimers)
		timeout := time.Duration(viper.GetInt("timeout")) * time.Second

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		var counter atomic.Int64
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				i := int(counter.Add(1))
				ctx, cancel := context.WithTimeout(context.Background(), timeout)
				start := time.Now()
				if err := test.op(ctx, i); err != nil {
					log.Printf("(%s) - error: %v\n", test.name, err)
				}
				timer.UpdateSince(start)
				cancel()
			}
		})
	})
}

func withClient(ctx context.Context, fn func(c *client.Client) error) error {
	c, err := pool.Get(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func node(i int) string {
	return fmt.Sprintf("0x%x", i%perfKeySpread+1)
}

func setName(i int) *common.Mutation {
	mu := common.NewMutation()
	mu.SetSetNquads(fmt.Sprintf(`<%s> <name> "perf-%d" .`, node(i), i))
	return mu
}

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult, aborted int64) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
	if aborted > 0 {
		fmt.Printf("\t%d aborted", aborted)
	}
	fmt.Println()
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"Namespace", "PoolSize", "Serializer", "Transport", "Local",
		"Threads", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for test, result := range results {
		var nsPerOp, opsPerSec float64
		skipped := "true"
		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			strconv.FormatUint(config.Namespace, 10),
			strconv.Itoa(config.PoolSize),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.FormatBool(viper.GetBool("local")),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
