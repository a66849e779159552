package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		s.data[key] = string(v)
	default:
		s.data[key] = fmt.Sprint(v)
	}
	s.ttls[key] = ttl
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func sampleResult() *executor.Result {
	return &executor.Result{
		Query:     "bank",
		Terms:     map[string]string{"bank": "1#1"},
		TotalHits: 1,
		Results:   []ranker.RankedDocument{{DocID: "d1", Score: 1.25}},
	}
}

func TestGetOrCompute_MissThenHit(t *testing.T) {
	store := newMemStore()
	m := metrics.New(prometheus.NewRegistry())
	c := New(store, time.Minute, m)
	query := map[string]string{"bank": "1#1"}
	calls := 0
	compute := func() (*executor.Result, error) { calls++; return sampleResult(), nil }

	res, hit, err := c.GetOrCompute(context.Background(), false, query, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "d1", res.Results[0].DocID)

	res, hit, err = c.GetOrCompute(context.Background(), false, query, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, sampleResult(), res)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, time.Minute, store.ttls[BuildKey(false, query)])
}

func TestGetOrCompute_ErrorsAreNotCached(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	query := map[string]string{"bank": "1#1"}
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute(context.Background(), false, query, func() (*executor.Result, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	_, hit, err := c.GetOrCompute(context.Background(), false, query, func() (*executor.Result, error) { return sampleResult(), nil })
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestGetOrCompute_CollapsesConcurrentMisses(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	query := map[string]string{"rate": "2#2"}
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), true, query, func() (*executor.Result, error) {
				calls.Add(1)
				<-release
				return sampleResult(), nil
			})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestBuildKey_SeparatesVariants(t *testing.T) {
	q := map[string]string{"bank": "1#1"}
	assert.NotEqual(t, BuildKey(false, q), BuildKey(true, q))
	assert.True(t, strings.HasPrefix(BuildKey(false, q), keyPrefix))
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, nil)
	q := map[string]string{"bank": "1#1"}
	c.Set(context.Background(), BuildKey(false, q), sampleResult())
	store.data["other"] = "keep"

	require.NoError(t, c.Invalidate(context.Background()))
	_, ok := c.Get(context.Background(), BuildKey(false, q))
	assert.False(t, ok)
	assert.Equal(t, "keep", store.data["other"])
}
