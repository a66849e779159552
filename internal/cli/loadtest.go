package cli

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/loadtest"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	loadURL         string
	loadConcurrency int
	loadDuration    time.Duration
	loadLimit       int
	loadQueries     []string
)

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Drive concurrent search requests against a running server",
	Long: `Send GET /api/v1/search requests from several workers for a fixed
duration and report throughput, latency percentiles and status codes.

Examples:
  irengine loadtest --url http://localhost:8080 -c 20 -d 1m
  irengine loadtest -q "oil prices" -q "trade deficit"`,
	Args: cobra.NoArgs,
	RunE: runLoadtest,
}

func init() {
	loadtestCmd.Flags().StringVar(&loadURL, "url", "", "base URL of the server (defaults to localhost:server.port)")
	loadtestCmd.Flags().IntVarP(&loadConcurrency, "concurrency", "c", 10, "concurrent workers")
	loadtestCmd.Flags().DurationVarP(&loadDuration, "duration", "d", 30*time.Second, "test duration")
	loadtestCmd.Flags().IntVarP(&loadLimit, "limit", "n", 10, "results per request")
	loadtestCmd.Flags().StringArrayVarP(&loadQueries, "query", "q", nil, "query to cycle through (repeatable)")
	rootCmd.AddCommand(loadtestCmd)
}

func runLoadtest(cmd *cobra.Command, args []string) error {
	target := loadURL
	if target == "" {
		target = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        loadConcurrency * 2,
			MaxIdleConnsPerHost: loadConcurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Requests"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("req"),
		progressbar.OptionSetWriter(os.Stderr),
	)
	var barMu sync.Mutex

	fmt.Printf("Target:      %s\nConcurrency: %d\nDuration:    %s\n\n", target, loadConcurrency, loadDuration)
	sum, err := loadtest.Run(ctx, client, loadtest.Config{
		BaseURL:     target,
		Concurrency: loadConcurrency,
		Duration:    loadDuration,
		Limit:       loadLimit,
		Queries:     loadQueries,
		Tick: func() {
			barMu.Lock()
			_ = bar.Add(1)
			barMu.Unlock()
		},
	})
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("%w (is the server running?)", err)
	}
	printLoadSummary(sum)
	return nil
}

func printLoadSummary(s loadtest.Summary) {
	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", s.Total)
	fmt.Printf("Successful:      %d\n", s.Success)
	fmt.Printf("Errors:          %d\n", s.Errors)
	fmt.Printf("Error Rate:      %.2f%%\n", s.ErrorRate())
	fmt.Printf("Requests/sec:    %.2f\n", s.RequestsPerSecond())

	if s.Max > 0 {
		fmt.Println("\n=== Latency ===")
		for _, row := range []struct {
			name string
			d    time.Duration
		}{
			{"Min", s.Min}, {"Avg", s.Avg}, {"P50", s.P50}, {"P90", s.P90},
			{"P95", s.P95}, {"P99", s.P99}, {"Max", s.Max}, {"StdDev", s.StdDev},
		} {
			fmt.Printf("%-7s %s\n", row.name+":", row.d)
		}
	}

	fmt.Println("\n=== Status Codes ===")
	codes := make([]int, 0, len(s.StatusCodes))
	for code := range s.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, s.StatusCodes[code])
	}
}
