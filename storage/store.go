package storage

import (
	"context"
	"errors"
	"time"

	"paper-atlas/models"
)

var (
	// ErrNotFound wird zurückgegeben, wenn kein passender Datensatz existiert.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists signalisiert eine verletzte Eindeutigkeit (z.B. parallele Inserts desselben Papers).
	ErrAlreadyExists = errors.New("record already exists")
)

// PaperStore verwaltet Papers, identifiziert über ihre externe ID.
type PaperStore interface {
	GetPaper(ctx context.Context, externalID string) (*models.Paper, error)
	ListPapers(ctx context.Context, externalIDs []string) ([]models.Paper, error)
	// CreatePaper fügt ein neues Paper ein; existiert die externe ID bereits, gibt es ErrAlreadyExists.
	CreatePaper(ctx context.Context, paper *models.Paper) (*models.Paper, error)
	UpdatePaper(ctx context.Context, paper *models.Paper) error
}

// ConnectionStore verwaltet gerichtete Kanten zwischen Papers.
type ConnectionStore interface {
	// RecordConnection legt eine Kante an; pro (Source, Target, Type) existiert höchstens eine Zeile,
	// deren Strength bei erneuter Beobachtung das Maximum behält.
	RecordConnection(ctx context.Context, conn *models.Connection) (*models.Connection, error)
	// ListConnections liefert alle Kanten, die paperID in einer der beiden Richtungen berühren.
	ListConnections(ctx context.Context, paperID string) ([]models.Connection, error)
}

// CacheStore ist die Tabelle hinter dem Ergebnis-Cache.
type CacheStore interface {
	GetCacheEntry(ctx context.Context, queryHash string) (*models.SearchCache, error)
	// PutCacheEntry schreibt den Eintrag; ein vorhandener Eintrag mit gleichem Hash wird ersetzt.
	PutCacheEntry(ctx context.Context, entry *models.SearchCache) error
	DeleteCacheEntry(ctx context.Context, queryHash string) error
	DeleteExpiredCache(ctx context.Context, now time.Time) (int64, error)
}

// HistoryStore hält die Suchhistorie.
type HistoryStore interface {
	CreateSearchQuery(ctx context.Context, q *models.SearchQuery) error
	ListSearchQueries(ctx context.Context, userID uint, limit int) ([]models.SearchQuery, error)
}

// UserStore verwaltet Nutzerkonten.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserCredential(ctx context.Context, id uint, encryptedKey, baseURL string) error
}

// ChatStore verwaltet Chat-Sessions und deren Nachrichten.
type ChatStore interface {
	CreateChatSession(ctx context.Context, session *models.ChatSession) (*models.ChatSession, error)
	GetChatSession(ctx context.Context, id uint) (*models.ChatSession, error)
	ListChatSessions(ctx context.Context, userID uint) ([]models.ChatSession, error)
	CreateChatMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error)
	// ListChatMessages liefert die Nachrichten in kanonischer Reihenfolge (CreatedAt, ID).
	ListChatMessages(ctx context.Context, sessionID uint) ([]models.ChatMessage, error)
}

// CollectionStore verwaltet Sammlungen und ihre Mitglieder.
type CollectionStore interface {
	CreateCollection(ctx context.Context, c *models.Collection) (*models.Collection, error)
	GetCollection(ctx context.Context, id uint) (*models.Collection, error)
	ListCollections(ctx context.Context, userID uint) ([]models.Collection, error)
	AddCollectionPaper(ctx context.Context, collectionID uint, paperID string) error
	RemoveCollectionPaper(ctx context.Context, collectionID uint, paperID string) error
	ListCollectionPaperIDs(ctx context.Context, collectionID uint) ([]string, error)
}

// Store bündelt alle Fähigkeiten; die Implementierung wird beim Start über DB_DRIVER gewählt.
type Store interface {
	PaperStore
	ConnectionStore
	CacheStore
	HistoryStore
	UserStore
	ChatStore
	CollectionStore
}
