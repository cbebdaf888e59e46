package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"paper-atlas/models"
	"paper-atlas/providers"
	"paper-atlas/providers/openai"
	"paper-atlas/services"
	"paper-atlas/storage"
)

type stubProvider struct {
	results   []models.Paper
	papers    map[string]models.Paper
	citations map[string][]providers.Edge
	searches  int
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Search(context.Context, providers.SearchParams) (*providers.SearchResult, error) {
	p.searches++
	return &providers.SearchResult{Papers: p.results, Total: len(p.results)}, nil
}

func (p *stubProvider) Paper(_ context.Context, id string) (*models.Paper, error) {
	paper, ok := p.papers[id]
	if !ok {
		return nil, providers.ErrNotFound
	}
	return &paper, nil
}

func (p *stubProvider) Citations(_ context.Context, id string, _ int) ([]providers.Edge, error) {
	return p.citations[id], nil
}

func (p *stubProvider) References(context.Context, string, int) ([]providers.Edge, error) {
	return nil, nil
}

func (p *stubProvider) Author(context.Context, string) (*providers.AuthorDetails, error) {
	return nil, providers.ErrNotFound
}

type testServer struct {
	router   *gin.Engine
	provider *stubProvider
	store    *storage.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop()
	store := storage.NewMemoryStore()
	p1 := models.Paper{ExternalID: "P1", Title: "Attention Is All You Need", Year: 2017}
	p2 := models.Paper{ExternalID: "P2", Title: "BERT", Year: 2018}
	provider := &stubProvider{
		results: []models.Paper{p1, p2},
		papers:  map[string]models.Paper{"P1": p1, "P2": p2},
		citations: map[string][]providers.Edge{
			"P1": {{Paper: p2, Influential: true}},
		},
	}

	metrics := services.NewMetrics(prometheus.NewRegistry())
	sealer, err := services.NewSealer(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	cache := services.NewResultCache(store, time.Hour, log, metrics)
	papers := services.NewPaperService(store, provider, nil, 0, log, metrics)
	llm := openai.NewClient("test-model", 0.2, 100, log)
	forwarder := services.NewForwarder(store, sealer, llm, "http://127.0.0.1:1", log, metrics)

	router := NewRouter(&Server{
		Search:      services.NewSearchService(cache, papers, provider, store, &singleflight.Group{}, 100, log, metrics),
		Papers:      papers,
		Graph:       services.NewGraphService(store, 3),
		Cache:       cache,
		Chat:        services.NewChatService(store, papers, forwarder, log),
		Auth:        services.NewAuthService(store, sealer, "test-secret", time.Hour, log),
		Collections: services.NewCollectionService(store, papers, nil, log),
		Logger:      log,
		CORSOrigins: "*",
	})
	return &testServer{router: router, provider: provider, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": email, "password": "correct horse"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestSearchIsCachedAcrossRequests(t *testing.T) {
	s := newTestServer(t)

	first := s.do(t, http.MethodPost, "/api/papers/search", "", gin.H{"query": "transformers"})
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	resp := decode[services.SearchResponse](t, first)
	assert.False(t, resp.Cached)
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Papers, 2)
	assert.Equal(t, "P1", resp.Papers[0].ExternalID)

	second := s.do(t, http.MethodPost, "/api/papers/search", "", gin.H{"query": "  Transformers "})
	require.Equal(t, http.StatusOK, second.Code)
	assert.True(t, decode[services.SearchResponse](t, second).Cached)
	assert.Equal(t, 1, s.provider.searches)

	stored, err := s.store.GetPaper(context.Background(), "P2")
	require.NoError(t, err)
	assert.Equal(t, "BERT", stored.Title)
}

func TestSearchRequiresQuery(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/papers/search", "", gin.H{"query": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "query is required", decode[map[string]string](t, w)["error"])
	assert.Zero(t, s.provider.searches)
}

func TestSearchHistoryForAuthenticatedUser(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ada@example.org")

	w := s.do(t, http.MethodPost, "/api/papers/search", token, gin.H{"query": "bert"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/search/history", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[struct {
		SearchHistory []models.SearchQuery `json:"searchHistory"`
	}](t, w)
	require.Len(t, history.SearchHistory, 1)
	assert.Equal(t, "bert", history.SearchHistory[0].Query)

	w = s.do(t, http.MethodGet, "/api/search/history", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaperAndGraphEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/papers/P1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Attention Is All You Need", decode[models.Paper](t, w).Title)

	w = s.do(t, http.MethodGet, "/api/papers/P1/citations", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cites := decode[struct {
		Papers []models.Paper `json:"papers"`
	}](t, w)
	require.Len(t, cites.Papers, 1)
	assert.Equal(t, "P2", cites.Papers[0].ExternalID)

	w = s.do(t, http.MethodGet, "/api/papers/P1/graph?depth=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	graph := decode[services.Neighborhood](t, w)
	require.Len(t, graph.Nodes, 2)
	assert.Equal(t, "P1", graph.Nodes[0].ID)
	require.Len(t, graph.Links, 1)
	assert.Equal(t, services.Link{Source: "P2", Target: "P1", Type: models.ConnectionCitation, Strength: 2}, graph.Links[0])

	w = s.do(t, http.MethodGet, "/api/papers/MISSING", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": "not-an-email", "password": "correct horse"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	token := s.register(t, "ada@example.org")
	w = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": "ADA@example.org", "password": "correct horse"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.org", "password": "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[struct {
		User struct {
			Email     string `json:"email"`
			HasAPIKey bool   `json:"hasApiKey"`
		} `json:"user"`
	}](t, w)
	assert.Equal(t, "ada@example.org", me.User.Email)
	assert.False(t, me.User.HasAPIKey)

	w = s.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "authentication required", decode[map[string]string](t, w)["error"])

	w = s.do(t, http.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid or expired token", decode[map[string]string](t, w)["error"])
}

func TestChatWithoutKeyIsRejected(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ada@example.org")

	w := s.do(t, http.MethodPost, "/api/chat/session", token, gin.H{"paperId": "P1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := decode[struct {
		Session models.ChatSession `json:"session"`
	}](t, w).Session
	assert.Equal(t, "Attention Is All You Need", session.Title)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/chat/session/%d/message", session.ID), token, gin.H{"content": "Summarize"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "LLM API key not configured", decode[map[string]string](t, w)["error"])
}

func TestChatRoundTripWithUserKey(t *testing.T) {
	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-user", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"It introduces the Transformer."}}]}`))
	}))
	defer llm.Close()

	s := newTestServer(t)
	token := s.register(t, "ada@example.org")

	w := s.do(t, http.MethodPut, "/api/auth/api-key", token, gin.H{"apiKey": "sk-user", "baseUrl": llm.URL})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/chat/session", token, gin.H{"paperId": "P1", "title": "Notes"})
	require.Equal(t, http.StatusCreated, w.Code)
	session := decode[struct {
		Session models.ChatSession `json:"session"`
	}](t, w).Session

	path := fmt.Sprintf("/api/chat/session/%d", session.ID)
	w = s.do(t, http.MethodPost, path+"/message", token, gin.H{"content": "What is this about?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reply := decode[struct {
		Message models.ChatMessage `json:"message"`
	}](t, w).Message
	assert.Equal(t, models.RoleAssistant, reply.Role)
	assert.Equal(t, "It introduces the Transformer.", reply.Content)

	w = s.do(t, http.MethodGet, path+"/messages", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode[struct {
		Messages []models.ChatMessage `json:"messages"`
	}](t, w).Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)

	other := s.register(t, "grace@example.org")
	w = s.do(t, http.MethodGet, path+"/messages", other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCollectionEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ada@example.org")

	w := s.do(t, http.MethodPost, "/api/collections", token, gin.H{"name": "Reading list"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	col := decode[struct {
		Collection models.Collection `json:"collection"`
	}](t, w).Collection

	path := fmt.Sprintf("/api/collections/%d", col.ID)
	w = s.do(t, http.MethodPost, path+"/papers", token, gin.H{"paperId": "P2"})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[struct {
		Collection struct {
			Papers []models.Paper `json:"papers"`
		} `json:"collection"`
	}](t, w)
	require.Len(t, detail.Collection.Papers, 1)
	assert.Equal(t, "P2", detail.Collection.Papers[0].ExternalID)

	// privat: anonym nicht sichtbar
	w = s.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, path+"/export", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = s.do(t, http.MethodDelete, path+"/papers/P2", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodDelete, path+"/papers/P2", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndCacheClear(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/cache/clear", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode[map[string]any](t, w)["deleted"])
}
