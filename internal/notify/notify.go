// Package notify delivers the one-shot "indexing completed" signal to the
// outside world: the log, and optionally a Kafka topic.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/builder"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/resilience"
)

const (
	defaultPublishTimeout = 5 * time.Second
	breakerName           = "kafka-notify"
)

// LogObserver writes the completion report as a single structured line.
type LogObserver struct {
	logger *slog.Logger
}

func NewLogObserver() *LogObserver {
	return &LogObserver{logger: slog.Default().With("component", "notify")}
}

func (o *LogObserver) IndexingCompleted(_ context.Context, r builder.Report) {
	o.logger.Info("index ready",
		"run_id", r.RunID,
		"stemmed", r.Stemmed,
		"corpus_size", r.CorpusSize,
		"documents", r.Documents,
		"elapsed", r.Elapsed,
		"partial", r.Partial,
	)
}

// CompletedEvent is the JSON payload published on the index-complete topic.
type CompletedEvent struct {
	RunID      string   `json:"run_id"`
	CorpusPath string   `json:"corpus_path"`
	Stemmed    bool     `json:"stemmed"`
	CorpusSize int      `json:"corpus_size"`
	Documents  int      `json:"documents"`
	ElapsedMS  int64    `json:"elapsed_ms"`
	Partial    bool     `json:"partial"`
	Errors     []string `json:"errors,omitempty"`
	Timestamp  string   `json:"timestamp"`
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// KafkaObserver publishes a CompletedEvent. Delivery is best-effort: a
// failure is logged and never affects the indexing run.
type KafkaObserver struct {
	publisher Publisher
	breaker   *resilience.CircuitBreaker
	timeout   time.Duration
	logger    *slog.Logger

	// breakerCfg is consumed by NewKafkaObserver once all options ran.
	breakerCfg resilience.CircuitBreakerConfig
}

type KafkaOption func(*KafkaObserver)

func WithPublishTimeout(d time.Duration) KafkaOption {
	return func(o *KafkaObserver) { o.timeout = d }
}

// WithBreaker replaces the default circuit breaker configuration.
func WithBreaker(cfg resilience.CircuitBreakerConfig) KafkaOption {
	return func(o *KafkaObserver) {
		hook := o.breakerCfg.OnStateChange
		o.breakerCfg = cfg
		if o.breakerCfg.OnStateChange == nil {
			o.breakerCfg.OnStateChange = hook
		}
	}
}

// WithBreakerMetrics mirrors breaker transitions into the circuit_breaker_state gauge.
func WithBreakerMetrics(m *metrics.Metrics) KafkaOption {
	return func(o *KafkaObserver) {
		if m == nil {
			return
		}
		m.CircuitBreakerState.WithLabelValues(breakerName).Set(float64(resilience.StateClosed))
		o.breakerCfg.OnStateChange = func(name string, _, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
}

func NewKafkaObserver(p Publisher, opts ...KafkaOption) *KafkaObserver {
	o := &KafkaObserver{
		publisher: p,
		timeout:   defaultPublishTimeout,
		logger:    slog.Default().With("component", "notify"),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.breaker = resilience.NewCircuitBreaker(breakerName, o.breakerCfg)
	return o
}

func (o *KafkaObserver) IndexingCompleted(ctx context.Context, r builder.Report) {
	event := kafka.Event{
		Key: r.RunID,
		Value: CompletedEvent{
			RunID:      r.RunID,
			CorpusPath: r.CorpusPath,
			Stemmed:    r.Stemmed,
			CorpusSize: r.CorpusSize,
			Documents:  r.Documents,
			ElapsedMS:  r.Elapsed.Milliseconds(),
			Partial:    r.Partial,
			Errors:     r.Errors,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		},
	}
	err := o.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, o.timeout, "publish index-complete", func(ctx context.Context) error {
			return o.publisher.Publish(ctx, event)
		})
	})
	if err != nil {
		o.logger.Warn("completion event not delivered", "run_id", r.RunID, "error", err)
	}
}

// BreakerState exposes the publisher's circuit state.
func (o *KafkaObserver) BreakerState() resilience.State {
	return o.breaker.State()
}
