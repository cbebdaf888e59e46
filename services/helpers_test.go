package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"paper-atlas/models"
	"paper-atlas/providers"
	"paper-atlas/storage"
)

type fakeProvider struct {
	mu sync.Mutex

	searchResult *providers.SearchResult
	searchErr    error
	searchDelay  time.Duration
	papers       map[string]models.Paper
	citations    map[string][]providers.Edge
	references   map[string][]providers.Edge
	authors      map[string]*providers.AuthorDetails

	searchCalls int
	authorCalls map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		papers:      map[string]models.Paper{},
		citations:   map[string][]providers.Edge{},
		references:  map[string][]providers.Edge{},
		authors:     map[string]*providers.AuthorDetails{},
		authorCalls: map[string]int{},
	}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Search(ctx context.Context, _ providers.SearchParams) (*providers.SearchResult, error) {
	f.mu.Lock()
	f.searchCalls++
	delay := f.searchDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResult, nil
}

func (f *fakeProvider) Paper(_ context.Context, id string) (*models.Paper, error) {
	p, ok := f.papers[id]
	if !ok {
		return nil, providers.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProvider) Citations(_ context.Context, id string, _ int) ([]providers.Edge, error) {
	return f.citations[id], nil
}

func (f *fakeProvider) References(_ context.Context, id string, _ int) ([]providers.Edge, error) {
	return f.references[id], nil
}

func (f *fakeProvider) Author(_ context.Context, id string) (*providers.AuthorDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authorCalls[id]++
	a, ok := f.authors[id]
	if !ok {
		return nil, providers.ErrNotFound
	}
	return a, nil
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls
}

type testEnv struct {
	store    *storage.MemoryStore
	provider *fakeProvider
	metrics  *Metrics
	cache    *ResultCache
	papers   *PaperService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	store := storage.NewMemoryStore()
	provider := newFakeProvider()
	metrics := NewMetrics(prometheus.NewRegistry())
	return &testEnv{
		store:    store,
		provider: provider,
		metrics:  metrics,
		cache:    NewResultCache(store, time.Hour, log, metrics),
		papers:   NewPaperService(store, provider, nil, 3, log, metrics),
	}
}

func paper(id, title string) models.Paper {
	return models.Paper{ExternalID: id, Title: title}
}
