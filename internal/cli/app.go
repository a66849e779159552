package cli

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/builder"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/parser"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/notify"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/redis"
)

// sinks holds the optional external systems. Any of them may be nil when
// disabled or unreachable; the engine works from local files alone.
type sinks struct {
	pg       *postgres.Client
	mirror   *docstore.PostgresMirror
	redis    *pkgredis.Client
	producer *kafka.Producer
}

func openSinks(ctx context.Context) *sinks {
	s := &sinks{}
	if cfg.Postgres.Enabled {
		pg, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, document mirror disabled", "error", err)
		} else {
			mirror := docstore.NewPostgresMirror(pg)
			if err := mirror.EnsureSchema(ctx); err != nil {
				slog.Warn("postgres schema setup failed, document mirror disabled", "error", err)
				_ = pg.Close()
			} else {
				s.pg, s.mirror = pg, mirror
			}
		}
	}
	if cfg.Redis.Enabled {
		rc, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, rank caching disabled", "error", err)
		} else {
			s.redis = rc
		}
	}
	if cfg.Kafka.Enabled {
		s.producer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
	}
	return s
}

func (s *sinks) Close() {
	if s.producer != nil {
		_ = s.producer.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.pg != nil {
		_ = s.pg.Close()
	}
}

func newBuilder(s *sinks, m *metrics.Metrics, extra ...builder.Option) *builder.Builder {
	opts := []builder.Option{
		builder.WithMetrics(m),
		builder.WithObservers(notify.NewLogObserver()),
	}
	if s.producer != nil {
		opts = append(opts, builder.WithObservers(notify.NewKafkaObserver(s.producer, notify.WithBreakerMetrics(m))))
	}
	if s.mirror != nil {
		opts = append(opts,
			builder.WithStoreOptions(docstore.WithMirror(s.mirror)),
			builder.WithResetHook(s.mirror.Truncate),
		)
	}
	if s.redis != nil {
		qc := cache.New(s.redis, cfg.Redis.CacheTTL, m)
		opts = append(opts, builder.WithResetHook(qc.Invalidate))
	}
	opts = append(opts, extra...)
	return builder.New(cfg.Indexer, cfg.Retry, opts...)
}

// searchStack is everything a ranking command needs for one index variant.
type searchStack struct {
	dict     *indexer.Dictionary
	store    *docstore.Store
	ranker   *ranker.Ranker
	executor *executor.Executor
	cache    *cache.QueryCache
}

func newSearchStack(s *sinks, m *metrics.Metrics) *searchStack {
	stem := cfg.Indexer.Stemming
	dict := indexer.NewDictionary(cfg.Indexer.PostingDir,
		indexer.WithMetrics(m),
		indexer.WithMinEntityDocs(cfg.Indexer.MinEntityDocs),
	)
	store := docstore.New(cfg.Indexer.PostingDir, docstore.WithMetrics(m))
	r := ranker.New(dict, store, stem, ranker.WithConfig(cfg.Ranking), ranker.WithMetrics(m))
	pipe := parser.NewPipeline(tokenizer.LoadStopWords(cfg.Indexer.StopWordsPath), tokenizer.NewStemmer(stem))
	st := &searchStack{
		dict:     dict,
		store:    store,
		ranker:   r,
		executor: executor.New(pipe, dict, r, stem),
	}
	if s.redis != nil {
		st.cache = cache.New(s.redis, cfg.Redis.CacheTTL, m)
	}
	return st
}
