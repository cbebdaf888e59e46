package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"paper-atlas/models"
)

type edgeKey struct {
	source, target, kind string
}

// MemoryStore ist die In-Memory-Variante des Stores für lokale Entwicklung und Tests.
// Die Daten leben nur so lange wie der Prozess.
type MemoryStore struct {
	mu  sync.RWMutex
	now func() time.Time

	nextID uint

	papers      map[string]models.Paper
	connections []models.Connection
	edges       map[edgeKey]int
	cache       map[string]models.SearchCache
	history     []models.SearchQuery
	users       map[uint]models.User
	sessions    map[uint]models.ChatSession
	messages    []models.ChatMessage
	collections map[uint]models.Collection
	members     []models.CollectionPaper
}

// NewMemoryStore erstellt einen leeren MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:         time.Now,
		papers:      make(map[string]models.Paper),
		edges:       make(map[edgeKey]int),
		cache:       make(map[string]models.SearchCache),
		users:       make(map[uint]models.User),
		sessions:    make(map[uint]models.ChatSession),
		collections: make(map[uint]models.Collection),
	}
}

func (m *MemoryStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) GetPaper(_ context.Context, externalID string) (*models.Paper, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.papers[externalID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) ListPapers(_ context.Context, externalIDs []string) ([]models.Paper, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Paper, 0, len(externalIDs))
	for _, id := range externalIDs {
		if p, ok := m.papers[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreatePaper(_ context.Context, paper *models.Paper) (*models.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.papers[paper.ExternalID]; ok {
		return nil, ErrAlreadyExists
	}
	p := *paper
	p.ID = m.id()
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	m.papers[p.ExternalID] = p
	return &p, nil
}

func (m *MemoryStore) UpdatePaper(_ context.Context, paper *models.Paper) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.papers[paper.ExternalID]
	if !ok {
		return ErrNotFound
	}
	p := *paper
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = m.now()
	m.papers[p.ExternalID] = p
	return nil
}

func (m *MemoryStore) RecordConnection(_ context.Context, conn *models.Connection) (*models.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := edgeKey{conn.SourceID, conn.TargetID, conn.Type}
	if idx, ok := m.edges[key]; ok {
		if conn.Strength > m.connections[idx].Strength {
			m.connections[idx].Strength = conn.Strength
		}
		c := m.connections[idx]
		return &c, nil
	}
	c := *conn
	c.ID = m.id()
	c.CreatedAt = m.now()
	m.edges[key] = len(m.connections)
	m.connections = append(m.connections, c)
	return &c, nil
}

func (m *MemoryStore) ListConnections(_ context.Context, paperID string) ([]models.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Connection
	for _, c := range m.connections {
		if c.SourceID == paperID || c.TargetID == paperID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetCacheEntry(_ context.Context, queryHash string) (*models.SearchCache, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.cache[queryHash]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *MemoryStore) PutCacheEntry(_ context.Context, entry *models.SearchCache) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := *entry
	if old, ok := m.cache[e.QueryHash]; ok {
		e.ID = old.ID
	} else {
		e.ID = m.id()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.now()
	}
	m.cache[e.QueryHash] = e
	*entry = e
	return nil
}

func (m *MemoryStore) DeleteCacheEntry(_ context.Context, queryHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, queryHash)
	return nil
}

func (m *MemoryStore) DeleteExpiredCache(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, e := range m.cache {
		if e.Expired(now) {
			delete(m.cache, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CreateSearchQuery(_ context.Context, q *models.SearchQuery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = m.id()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = m.now()
	}
	m.history = append(m.history, *q)
	return nil
}

func (m *MemoryStore) ListSearchQueries(_ context.Context, userID uint, limit int) ([]models.SearchQuery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.SearchQuery
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].UserID != userID {
			continue
		}
		out = append(out, m.history[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, ErrAlreadyExists
		}
	}
	u := *user
	u.ID = m.id()
	u.CreatedAt = m.now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = u
	return &u, nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateUserCredential(_ context.Context, id uint, encryptedKey, baseURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.EncryptedAPIKey = encryptedKey
	u.APIBaseURL = baseURL
	u.UpdatedAt = m.now()
	m.users[id] = u
	return nil
}

func (m *MemoryStore) CreateChatSession(_ context.Context, session *models.ChatSession) (*models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *session
	s.ID = m.id()
	s.CreatedAt = m.now()
	s.UpdatedAt = s.CreatedAt
	m.sessions[s.ID] = s
	return &s, nil
}

func (m *MemoryStore) GetChatSession(_ context.Context, id uint) (*models.ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) ListChatSessions(_ context.Context, userID uint) ([]models.ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ChatSession
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (m *MemoryStore) CreateChatMessage(_ context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[msg.SessionID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *msg
	c.ID = m.id()
	c.CreatedAt = m.now()
	m.messages = append(m.messages, c)
	s.UpdatedAt = c.CreatedAt
	m.sessions[s.ID] = s
	return &c, nil
}

func (m *MemoryStore) ListChatMessages(_ context.Context, sessionID uint) ([]models.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ChatMessage
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) CreateCollection(_ context.Context, c *models.Collection) (*models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	col := *c
	col.ID = m.id()
	col.CreatedAt = m.now()
	col.UpdatedAt = col.CreatedAt
	m.collections[col.ID] = col
	return &col, nil
}

func (m *MemoryStore) GetCollection(_ context.Context, id uint) (*models.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *MemoryStore) ListCollections(_ context.Context, userID uint) ([]models.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Collection
	for _, c := range m.collections {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) AddCollectionPaper(_ context.Context, collectionID uint, paperID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collectionID]; !ok {
		return ErrNotFound
	}
	for _, cp := range m.members {
		if cp.CollectionID == collectionID && cp.PaperID == paperID {
			return nil
		}
	}
	m.members = append(m.members, models.CollectionPaper{
		ID:           m.id(),
		CreatedAt:    m.now(),
		CollectionID: collectionID,
		PaperID:      paperID,
	})
	return nil
}

func (m *MemoryStore) RemoveCollectionPaper(_ context.Context, collectionID uint, paperID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cp := range m.members {
		if cp.CollectionID == collectionID && cp.PaperID == paperID {
			m.members = append(m.members[:i], m.members[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) ListCollectionPaperIDs(_ context.Context, collectionID uint) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, cp := range m.members {
		if cp.CollectionID == collectionID {
			out = append(out, cp.PaperID)
		}
	}
	return out, nil
}
