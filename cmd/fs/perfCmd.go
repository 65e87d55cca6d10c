package fs

import (
	"context"
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/dFS/cmd/util"
	"github.com/ValentinKolb/dFS/rpc/client"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/ValentinKolb/dFS/rpc/serializer"
	"github.com/ValentinKolb/dFS/rpc/transport/udp"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Latency testing tool for dFS servers",
		Long:    "Sends requests of every operation and prints latency percentiles. The set test writes to the keys [key-offset, key-offset+keys) and deletes them afterwards.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfRequests  = 1000
	perfThreads   = 4
	perfValueSize = 1024
	perfKeySpread = 100
	perfKeyOffset = uint32(1_000_000)
	perfSkip      = make([]string, 0)
)

// perfPercentiles are the reported latency percentiles
var perfPercentiles = []float64{0.5, 0.9, 0.99, 0.999}

// perfResult holds the measurements of one test
type perfResult struct {
	name   string
	timer  gometrics.Timer
	errors int64
	took   time.Duration
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Tests to skip (comma separated - e.g. set,get-last)"))
	key = "requests"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("Number of requests per test"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 4, util.WrapString("Number of clients sending in parallel, each with its own socket. The set test always uses one client"))
	key = "value-size"
	perfTestCmd.Flags().Int(key, 1024, util.WrapString("Size of the values written by the set test (in bytes)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "key-offset"
	perfTestCmd.Flags().Uint32(key, 1_000_000, util.WrapString("First key used by the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save the results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfRequests = max(viper.GetInt("requests"), 1)
	perfThreads = max(viper.GetInt("threads"), 1)
	perfValueSize = max(viper.GetInt("value-size"), 1)
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfKeyOffset = viper.GetUint32("key-offset")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(cmd *cobra.Command, _ []string) error {
	ctx := background(cmd)

	fmt.Println("Latency testing tool for dFS servers")

	// Print configuration
	config, err := util.GetClientConfig()
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Requests: %d, Threads: %d, Keys: %d\n", perfRequests, perfThreads, perfKeySpread)
	fmt.Println()

	fmt.Println("starting tests...")

	// One client per thread, a client only has one request in flight
	clients, err := newPerfClients(config, perfThreads)
	if err != nil {
		return err
	}
	defer closePerfClients(clients)

	last := perfKeyOffset + uint32(perfKeySpread) - 1
	results := make([]*perfResult, 0, 4)

	// Writes run one after another, every write needs the current version
	if !shouldSkip("set") {
		value := make([]byte, perfValueSize)
		version, err := rpcStore.GetFileVersion(ctx, perfKeyOffset)
		if err != nil {
			return fmt.Errorf("failed to read the database version: %w", err)
		}
		dbVersion := version.DBVersion

		results = append(results, measure("set", clients[:1], func(c *client.RPCFileStore, i int) error {
			err := c.Set(ctx, dbVersion, []common.KeyValue{{Key: perfKeyOffset + uint32(i%perfKeySpread), Value: value}})
			if err == nil {
				dbVersion++
			}
			return err
		}))
	}

	if !shouldSkip("get-version") {
		results = append(results, measure("get-version", clients, func(c *client.RPCFileStore, i int) error {
			_, err := c.GetFileVersion(ctx, perfKeyOffset+uint32(i%perfKeySpread))
			return err
		}))
	}

	if !shouldSkip("get") {
		results = append(results, measure("get", clients, func(c *client.RPCFileStore, i int) error {
			key := perfKeyOffset + uint32(i%perfKeySpread)
			_, err := c.Get(ctx, key, key)
			return err
		}))
	}

	if !shouldSkip("get-last") {
		results = append(results, measure("get-last", clients, func(c *client.RPCFileStore, _ int) error {
			_, err := c.GetLast(ctx, perfKeyOffset, last)
			return err
		}))
	}

	// cleanup
	if !shouldSkip("set") {
		if err := cleanupPerfKeys(ctx); err != nil {
			log.Printf("(set) - error deleting keys: %v\n", err)
		}
	}

	fmt.Println()
	for _, result := range results {
		printPerfResult(result)
	}

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// newPerfClients creates n clients, each with its own UDP socket
func newPerfClients(config *common.ClientConfig, n int) ([]*client.RPCFileStore, error) {
	clients := make([]*client.RPCFileStore, 0, n)
	for i := 0; i < n; i++ {
		c, err := client.NewRPCFileStore(*config, udp.NewUDPClientTransport(), serializer.NewBinarySerializer())
		if err != nil {
			closePerfClients(clients)
			return nil, fmt.Errorf("failed to create client %d: %w", i, err)
		}
		clients = append(clients, c)
	}
	return clients, nil
}

// closePerfClients closes all clients
func closePerfClients(clients []*client.RPCFileStore) {
	for _, c := range clients {
		_ = c.Close()
	}
}

// measure runs fn perfRequests times, one goroutine per client, and records every latency
func measure(name string, clients []*client.RPCFileStore, fn func(c *client.RPCFileStore, i int) error) *perfResult {
	result := &perfResult{name: name, timer: gometrics.NewTimer()}

	var (
		next   atomic.Int64
		errors atomic.Int64
		wg     sync.WaitGroup
	)

	start := time.Now()
	for _, c := range clients {
		wg.Add(1)
		go func(c *client.RPCFileStore) {
			defer wg.Done()
			for {
				i := int(next.Add(1) - 1)
				if i >= perfRequests {
					return
				}
				reqStart := time.Now()
				if err := fn(c, i); err != nil {
					errors.Add(1)
					log.Printf("(%s) - request failed: %v\n", name, err)
					continue
				}
				result.timer.UpdateSince(reqStart)
			}
		}(c)
	}
	wg.Wait()

	result.took = time.Since(start)
	result.errors = errors.Load()
	return result
}

// cleanupPerfKeys deletes all keys written by the set test
func cleanupPerfKeys(ctx context.Context) error {
	version, err := rpcStore.GetFileVersion(ctx, perfKeyOffset)
	if err != nil {
		return err
	}
	values := make([]common.KeyValue, perfKeySpread)
	for i := range values {
		values[i] = common.KeyValue{Key: perfKeyOffset + uint32(i), Value: []byte{}}
	}
	return rpcStore.Set(ctx, version.DBVersion, values)
}

// printPerfResult prints the result of a test in a formatted way
func printPerfResult(r *perfResult) {
	snapshot := r.timer.Snapshot()
	if snapshot.Count() == 0 {
		fmt.Printf("%-14sno successful requests (%d errors)\n", r.name, r.errors)
		return
	}

	ps := snapshot.Percentiles(perfPercentiles)
	opsPerSec := float64(snapshot.Count()) / r.took.Seconds()

	fmt.Printf("%-14smean %-10s p50 %-10s p90 %-10s p99 %-10s p99.9 %-10s max %-10s %.0f ops/sec, %d errors\n",
		r.name,
		time.Duration(snapshot.Mean()).Round(time.Microsecond),
		time.Duration(ps[0]).Round(time.Microsecond),
		time.Duration(ps[1]).Round(time.Microsecond),
		time.Duration(ps[2]).Round(time.Microsecond),
		time.Duration(ps[3]).Round(time.Microsecond),
		time.Duration(snapshot.Max()).Round(time.Microsecond),
		opsPerSec,
		r.errors,
	)
}

// writeResultsToCSV writes the results to a CSV file
func writeResultsToCSV(csvPath string, results []*perfResult, config *common.ClientConfig) error {
	file, err := util.Fs.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Requests", "Errors", "MeanNs", "P50Ns", "P90Ns", "P99Ns", "P999Ns", "MaxNs", "OpsPerSec",
		"Endpoint", "Database", "TimeoutMs", "Threads", "ValueSize", "Keys",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, r := range results {
		snapshot := r.timer.Snapshot()
		ps := snapshot.Percentiles(perfPercentiles)

		row := []string{
			r.name,
			strconv.FormatInt(snapshot.Count(), 10),
			strconv.FormatInt(r.errors, 10),
			fmt.Sprintf("%.0f", snapshot.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", ps[2]),
			fmt.Sprintf("%.0f", ps[3]),
			strconv.FormatInt(snapshot.Max(), 10),
			fmt.Sprintf("%.0f", float64(snapshot.Count())/r.took.Seconds()),
			config.Endpoint,
			config.DBName,
			strconv.Itoa(config.TimeoutMillisecond),
			strconv.Itoa(perfThreads),
			strconv.Itoa(perfValueSize),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", r.name, err)
		}
	}

	return nil
}
