package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/builder"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/segment"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	resetFirst bool
	workers    int
	quiet      bool
)

var indexCmd = &cobra.Command{
	Use:   "index [corpus]",
	Short: "Build the dictionary and document store from a corpus",
	Long: `Index every <DOC> record under the corpus directory. The stemmed and
unstemmed variants are stored side by side under the posting directory.

Examples:
  irengine index                      # Use indexer.corpusDir
  irengine index ./corpus --stem      # Build the stemmed variant
  irengine index ./corpus --reset     # Clear both variants first`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove both persisted index variants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := openSinks(cmd.Context())
		defer s.Close()
		newBuilder(s, nil).ResetStore(cmd.Context(), cfg.Indexer.CorpusDir, cfg.Indexer.PostingDir)
		fmt.Printf("Posting store cleared: %s\n", cfg.Indexer.PostingDir)
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&resetFirst, "reset", false, "clear the posting store before indexing")
	indexCmd.Flags().IntVarP(&workers, "workers", "w", 0, "parser workers (overrides indexer.workers)")
	indexCmd.Flags().BoolVar(&quiet, "quiet", false, "disable the progress bar")
	rootCmd.AddCommand(indexCmd, resetCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	corpus := cfg.Indexer.CorpusDir
	if len(args) > 0 {
		corpus = args[0]
	}
	abs, err := filepath.Abs(corpus)
	if err != nil {
		return fmt.Errorf("invalid corpus path: %w", err)
	}
	if workers > 0 {
		cfg.Indexer.Workers = workers
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := newMetrics()
	s := openSinks(ctx)
	defer s.Close()

	var opts []builder.Option
	var bar *progressbar.ProgressBar
	if !quiet {
		bar = newProgressBar()
		var barMu sync.Mutex
		opts = append(opts, builder.WithProgress(func() {
			barMu.Lock()
			_ = bar.Add(1)
			barMu.Unlock()
		}))
	}
	b := newBuilder(s, m, opts...)

	if resetFirst {
		b.ResetStore(ctx, abs, cfg.Indexer.PostingDir)
	}

	fmt.Printf("Indexing %s (stemmed=%t, workers=%d)...\n", abs, cfg.Indexer.Stemming, cfg.Indexer.Workers)
	report := b.StartIndexing(ctx, abs, cfg.Indexer.PostingDir, cfg.Indexer.Stemming)
	if bar != nil {
		_ = bar.Finish()
	}
	printReport(report)
	return nil
}

func newProgressBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionSetDescription("[cyan]Parsing[reset]"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

func printReport(r *builder.Report) {
	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Run:          %s\n", r.RunID)
	fmt.Printf("  Documents:    %d (%d read, %d duplicates)\n", r.Documents, r.Read, r.Duplicates)
	fmt.Printf("  Corpus size:  %d terms\n", r.CorpusSize)
	fmt.Printf("  Elapsed:      %s\n", r.Elapsed.Round(time.Millisecond))
	for _, phase := range []string{"read", "drain", "persist"} {
		if d, ok := r.Phases[phase]; ok {
			fmt.Printf("    %-8s    %s\n", phase, d.Round(time.Millisecond))
		}
	}
	if r.Partial {
		fmt.Printf("\nWarnings:\n")
		for _, e := range r.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	fmt.Printf("\nIndex stored at: %s\n", segment.VariantDir(cfg.Indexer.PostingDir, r.Stemmed))
}
