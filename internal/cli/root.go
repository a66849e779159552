// Package cli is the irengine command line: build the index from a corpus,
// reset the posting store, rank queries and entities, list terms and serve
// the ranking API.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	postingDir string
	stemmed    bool
	cfg        *config.Config

	metricsShutdown func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "irengine",
	Short: "Corpus retrieval engine - index tagged corpora and rank documents with BM25",
	Long: `irengine indexes a corpus of <DOC> tagged documents into a term dictionary
and a document store, then ranks documents against queries with BM25 and
ranks the named entities of single documents.

Example usage:
  irengine index ./corpus --stem      # Build the stemmed index
  irengine search -q "interest rates" # Rank documents
  irengine entities FBIS3-1           # Top entities of one document
  irengine serve                      # Start the HTTP API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
		if postingDir != "" {
			cfg.Indexer.PostingDir = postingDir
		}
		if cmd.Flags().Changed("stem") {
			cfg.Indexer.Stemming = stemmed
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if metricsShutdown != nil {
			return metricsShutdown(context.Background())
		}
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (defaults plus IR_* environment overrides when empty)")
	rootCmd.PersistentFlags().StringVarP(&postingDir, "postings", "p", "", "posting store directory (overrides indexer.postingDir)")
	rootCmd.PersistentFlags().BoolVar(&stemmed, "stem", false, "use the stemmed index variant")
}

// newMetrics registers collectors on the default registry and starts the
// scrape server when metrics are enabled.
func newMetrics() *metrics.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	m := metrics.New(nil)
	metricsShutdown = metrics.StartServer(cfg.Metrics.Port, nil)
	slog.Info("metrics enabled", "port", cfg.Metrics.Port)
	return m
}
