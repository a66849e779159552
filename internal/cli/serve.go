package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/health"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ranking API over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := newMetrics()
	s := openSinks(ctx)
	defer s.Close()
	st := newSearchStack(s, m)
	if err := st.ranker.Ready(); err != nil {
		slog.Warn("index not loaded yet, ready probe will fail until reload", "error", err)
	}

	checker := health.NewChecker()
	checker.Register("dictionary", health.Loaded("dictionary", st.dict.Loaded))
	checker.Register("documents", health.Loaded("document store", st.store.Loaded))
	if s.redis != nil {
		checker.Register("redis", health.Pinger(s.redis.Ping))
	}
	if s.pg != nil {
		checker.Register("postgres", health.Pinger(s.pg.DB.PingContext))
	}

	h := handler.New(st.executor, st.ranker, st.dict, st.cache, cfg.Indexer.Stemming)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h.Routes(checker, m, cfg.Server.WriteTimeout),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("ranking API listening", "addr", server.Addr, "stemmed", cfg.Indexer.Stemming)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	slog.Info("ranking API stopped")
	return nil
}
