package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"paper-atlas/models"
	"paper-atlas/storage"
)

// CachedResult is the full, unpaginated result of an earlier search.
type CachedResult struct {
	Results []models.Paper
	Total   int
}

// ResultCache sits in front of the bibliographic provider. Entries expire after TTL
// and are removed lazily on read or in bulk by Sweep.
type ResultCache struct {
	Backend storage.CacheStore
	TTL     time.Duration
	Logger  *zap.Logger
	Metrics *Metrics

	now func() time.Time
}

// NewResultCache creates a ResultCache backed by store.
func NewResultCache(store storage.CacheStore, ttl time.Duration, logger *zap.Logger, metrics *Metrics) *ResultCache {
	return &ResultCache{Backend: store, TTL: ttl, Logger: logger, Metrics: metrics, now: time.Now}
}

// CacheKey returns the hex xxhash64 digest of the normalized query and its filters.
// A nil minCitations and an empty field or year each produce an empty segment.
// Segments are length-prefixed, so separators inside filter text cannot collide.
func CacheKey(query, field, year string, minCitations *int) string {
	minCit := ""
	if minCitations != nil {
		minCit = strconv.Itoa(*minCitations)
	}
	d := xxhash.New()
	for _, seg := range []string{
		normalizeQuery(query),
		strings.TrimSpace(field),
		strings.TrimSpace(year),
		minCit,
	} {
		_, _ = d.WriteString(strconv.Itoa(len(seg)) + ":" + seg + "|")
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Lookup returns the cached result for key. An expired row is deleted and reported as absent.
func (c *ResultCache) Lookup(ctx context.Context, key string) (*CachedResult, bool, error) {
	entry, err := c.Backend.GetCacheEntry(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if entry.Expired(c.now()) {
		if err := c.Backend.DeleteCacheEntry(ctx, key); err != nil {
			return nil, false, err
		}
		c.Metrics.CacheEvicted.Inc()
		c.Logger.Debug("Evicted expired cache entry", zap.String("key", key), zap.Time("expiresAt", entry.ExpiresAt))
		return nil, false, nil
	}
	return &CachedResult{Results: entry.Results, Total: entry.Total}, true, nil
}

// Store writes results under key with expiry now+TTL, replacing any earlier row.
func (c *ResultCache) Store(ctx context.Context, key string, results []models.Paper, total int) error {
	now := c.now()
	if results == nil {
		results = []models.Paper{}
	}
	return c.Backend.PutCacheEntry(ctx, &models.SearchCache{
		CreatedAt: now,
		QueryHash: key,
		Results:   results,
		Total:     total,
		ExpiresAt: now.Add(c.TTL),
	})
}

// Sweep deletes every expired row and returns how many were removed.
func (c *ResultCache) Sweep(ctx context.Context) (int64, error) {
	n, err := c.Backend.DeleteExpiredCache(ctx, c.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		c.Metrics.CacheEvicted.Add(float64(n))
	}
	return n, nil
}

// Paginate returns results[offset:offset+limit] clamped to the slice bounds.
func Paginate(results []models.Paper, offset, limit int) []models.Paper {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) || limit <= 0 {
		return []models.Paper{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}
