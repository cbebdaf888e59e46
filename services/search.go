package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"paper-atlas/models"
	"paper-atlas/providers"
	"paper-atlas/storage"
)

const previewSize = 5

// SearchRequest is a paper search with optional filters and pagination.
type SearchRequest struct {
	Query        string `json:"query"`
	Field        string `json:"field,omitempty"`
	Year         string `json:"year,omitempty"`
	MinCitations *int   `json:"minCitations,omitempty"`
	Offset       int    `json:"offset,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// SearchResponse is one page of a search.
type SearchResponse struct {
	Papers []models.Paper `json:"papers"`
	Total  int            `json:"total"`
	Offset int            `json:"offset"`
	Next   *int           `json:"next,omitempty"`
	Cached bool           `json:"cached"`
}

// SearchService serves searches from the result cache and falls back to the provider.
type SearchService struct {
	Cache      *ResultCache
	Papers     *PaperService
	Provider   providers.Provider
	History    storage.HistoryStore
	Logger     *zap.Logger
	Metrics    *Metrics
	FetchLimit int

	// Flight coalesces concurrent misses for the same cache key.
	Flight *singleflight.Group
}

// NewSearchService wires a SearchService.
func NewSearchService(cache *ResultCache, papers *PaperService, provider providers.Provider, history storage.HistoryStore, flight *singleflight.Group, fetchLimit int, logger *zap.Logger, metrics *Metrics) *SearchService {
	return &SearchService{
		Cache:      cache,
		Papers:     papers,
		Provider:   provider,
		History:    history,
		Flight:     flight,
		FetchLimit: fetchLimit,
		Logger:     logger,
		Metrics:    metrics,
	}
}

// DefaultPageSize is used when a request carries no limit.
const DefaultPageSize = 10

// Search returns the requested page. On a miss the full result is fetched once and cached.
// The papers of every served page are stored, whether it came from the cache or not.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return nil, ErrQueryRequired
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	if req.Limit <= 0 {
		req.Limit = DefaultPageSize
	}

	log := s.Logger.With(zap.String("query", req.Query))
	key := CacheKey(req.Query, req.Field, req.Year, req.MinCitations)

	hit, ok, err := s.Cache.Lookup(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	if ok {
		s.Metrics.CacheHits.Inc()
		log.Debug("Search served from cache", zap.String("key", key))
		resp := page(hit, req, true)
		if err := s.storePage(ctx, resp); err != nil {
			return nil, err
		}
		return resp, nil
	}
	s.Metrics.CacheMisses.Inc()

	// The fetch is shared by every caller waiting on key; one caller going away must not cancel it.
	fetchCtx := context.WithoutCancel(ctx)
	v, err, shared := s.Flight.Do(key, func() (interface{}, error) {
		res, err := s.Provider.Search(fetchCtx, providers.SearchParams{
			Query:        req.Query,
			Field:        req.Field,
			Year:         req.Year,
			MinCitations: req.MinCitations,
			Limit:        s.FetchLimit,
		})
		s.Metrics.ProviderCalls.WithLabelValues("search", outcome(err)).Inc()
		if err != nil {
			return nil, err
		}
		if err := s.Cache.Store(fetchCtx, key, res.Papers, res.Total); err != nil {
			return nil, fmt.Errorf("cache store: %w", err)
		}
		return &CachedResult{Results: res.Papers, Total: res.Total}, nil
	})
	if err != nil {
		return nil, err
	}
	fetched := v.(*CachedResult)
	log.Info("Search fetched from provider",
		zap.Int("results", len(fetched.Results)),
		zap.Int("total", fetched.Total),
		zap.Bool("shared", shared))

	resp := page(fetched, req, false)
	if err := s.storePage(ctx, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// storePage stores the papers of a served page. Papers already stored stay unchanged.
func (s *SearchService) storePage(ctx context.Context, resp *SearchResponse) error {
	for _, p := range resp.Papers {
		if _, err := s.Papers.EnsurePaper(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func page(r *CachedResult, req SearchRequest, cached bool) *SearchResponse {
	resp := &SearchResponse{
		Papers: Paginate(r.Results, req.Offset, req.Limit),
		Total:  r.Total,
		Offset: req.Offset,
		Cached: cached,
	}
	if next := req.Offset + req.Limit; next < len(r.Results) {
		resp.Next = &next
	}
	return resp
}

// RecordHistory stores a served search for userID with a preview of the first titles.
func (s *SearchService) RecordHistory(ctx context.Context, userID uint, req SearchRequest, resp *SearchResponse) error {
	preview := make([]string, 0, previewSize)
	for i := 0; i < len(resp.Papers) && i < previewSize; i++ {
		preview = append(preview, resp.Papers[i].Title)
	}
	return s.History.CreateSearchQuery(ctx, &models.SearchQuery{
		UserID:       userID,
		Query:        strings.TrimSpace(req.Query),
		Field:        req.Field,
		Year:         req.Year,
		MinCitations: req.MinCitations,
		ResultCount:  resp.Total,
		Preview:      preview,
	})
}

// ListHistory returns the latest searches of userID.
func (s *SearchService) ListHistory(ctx context.Context, userID uint, limit int) ([]models.SearchQuery, error) {
	return s.History.ListSearchQueries(ctx, userID, limit)
}
