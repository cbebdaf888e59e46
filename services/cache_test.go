package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-atlas/models"
)

func TestCacheFreshness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := base
	env.cache.now = func() time.Time { return now }

	results := []models.Paper{paper("p1", "A"), paper("p2", "B")}
	require.NoError(t, env.cache.Store(ctx, "k", results, 42))

	// exactly at expiry the entry is still served
	now = base.Add(time.Hour)
	got, ok, err := env.cache.Lookup(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, got.Total)
	assert.Equal(t, results, got.Results)

	now = base.Add(time.Hour + time.Nanosecond)
	_, ok, err = env.cache.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = env.store.GetCacheEntry(ctx, "k")
	assert.Error(t, err, "expired entry must be removed on read")
}

func TestCacheStoreOverwrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.cache.Store(ctx, "k", []models.Paper{paper("old", "Old")}, 1))
	require.NoError(t, env.cache.Store(ctx, "k", []models.Paper{paper("new", "New")}, 2))

	got, ok, err := env.cache.Lookup(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, "new", got.Results[0].ExternalID)
}

func TestCacheSweep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := base
	env.cache.now = func() time.Time { return now }

	require.NoError(t, env.cache.Store(ctx, "old", nil, 0))
	now = base.Add(30 * time.Minute)
	require.NoError(t, env.cache.Store(ctx, "fresh", nil, 0))

	now = base.Add(61 * time.Minute)
	n, err := env.cache.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := env.cache.Lookup(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCacheKeyDeterminism(t *testing.T) {
	five := 5
	alsoFive := 5
	six := 6

	base := CacheKey("Transformer", "Computer Science", "2020", &five)
	assert.Equal(t, base, CacheKey("Transformer", "Computer Science", "2020", &alsoFive))
	assert.Equal(t, base, CacheKey("  transformer ", "Computer Science", "2020", &five))

	for name, other := range map[string]string{
		"query":        CacheKey("attention", "Computer Science", "2020", &five),
		"field":        CacheKey("Transformer", "Biology", "2020", &five),
		"year":         CacheKey("Transformer", "Computer Science", "2021", &five),
		"minCitations": CacheKey("Transformer", "Computer Science", "2020", &six),
		"nil minimum":  CacheKey("Transformer", "Computer Science", "2020", nil),
	} {
		assert.NotEqual(t, base, other, name)
	}

	zero := 0
	assert.NotEqual(t, CacheKey("q", "", "", nil), CacheKey("q", "", "", &zero))
}

func TestCacheKeySeparatorInFilters(t *testing.T) {
	assert.NotEqual(t, CacheKey("q", "a|b", "c", nil), CacheKey("q", "a", "b|c", nil))
	assert.NotEqual(t, CacheKey("q|x", "", "", nil), CacheKey("q", "x", "", nil))
	assert.NotEqual(t, CacheKey("q", "", "2020|", nil), CacheKey("q", "", "2020", nil))
}

func TestPaginate(t *testing.T) {
	results := make([]models.Paper, 7)
	for i := range results {
		results[i] = paper(string(rune('a'+i)), "")
	}

	tests := []struct {
		name          string
		offset, limit int
		want          []models.Paper
	}{
		{"first page", 0, 3, results[0:3]},
		{"middle", 3, 3, results[3:6]},
		{"clamped end", 5, 10, results[5:7]},
		{"past end", 7, 3, []models.Paper{}},
		{"negative offset", -2, 2, results[0:2]},
		{"zero limit", 0, 0, []models.Paper{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Paginate(results, tt.offset, tt.limit))
		})
	}
}
