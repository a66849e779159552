package merger

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

type scored struct {
	id    string
	score float64
}

func byScore(a, b scored) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.id < b.id
}

func TestTopK_Bounds(t *testing.T) {
	pool := func(n int) []scored {
		out := make([]scored, n)
		for i := range out {
			out[i] = scored{id: string(rune('a' + i)), score: float64(i)}
		}
		return out
	}
	assert.Len(t, TopK(pool(5), 5, byScore), 5)
	assert.Len(t, TopK(pool(4), 5, byScore), 4)
	assert.Len(t, TopK(pool(6), 5, byScore), 5)
	assert.Nil(t, TopK(pool(6), 0, byScore))
	assert.Empty(t, TopK[scored](nil, 5, byScore))
}

func TestTopK_OrderAndTies(t *testing.T) {
	items := []scored{{"c", 1}, {"a", 3}, {"b", 3}, {"d", 2}, {"e", 0.5}}
	got := TopK(items, 3, byScore)
	assert.Equal(t, []scored{{"a", 3}, {"b", 3}, {"d", 2}}, got)
}

func TestTopK_MatchesFullSort(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("heap selection equals sort-then-truncate", prop.ForAll(
		func(n, limit int, seed int64) bool {
			rng := rand.New(rand.NewSource(seed))
			items := make([]scored, n)
			for i := range items {
				items[i] = scored{id: string(rune('A' + i)), score: float64(rng.Intn(10))}
			}
			want := append([]scored(nil), items...)
			sort.Slice(want, func(i, j int) bool { return byScore(want[i], want[j]) })
			if len(want) > limit {
				want = want[:limit]
			}
			got := TopK(items, limit, byScore)
			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i] != want[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 60),
		gen.IntRange(1, 20),
		gen.Int64(),
	))
	properties.TestingRun(t)
}
