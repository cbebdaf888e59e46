package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"paper-atlas/config"
	"paper-atlas/models"
)

// GormStore implementiert Store auf einer relationalen Datenbank (PostgreSQL oder SQLite).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore kapselt eine bereits geöffnete Verbindung.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Open öffnet die Datenbank gemäß DB_DRIVER und migriert das Schema.
func Open(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.DBDriver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gcfg)
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.SQLitePath), gcfg)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	log.Info("Database ready", zap.String("driver", cfg.DBDriver))
	return db, nil
}

// AutoMigrate legt alle Tabellen und Indizes an.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Paper{},
		&models.Connection{},
		&models.SearchQuery{},
		&models.SearchCache{},
		&models.User{},
		&models.ChatSession{},
		&models.ChatMessage{},
		&models.Collection{},
		&models.CollectionPaper{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) GetPaper(ctx context.Context, externalID string) (*models.Paper, error) {
	var p models.Paper
	if err := s.db.WithContext(ctx).Where("external_id = ?", externalID).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *GormStore) ListPapers(ctx context.Context, externalIDs []string) ([]models.Paper, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}
	var papers []models.Paper
	if err := s.db.WithContext(ctx).Where("external_id IN ?", externalIDs).Find(&papers).Error; err != nil {
		return nil, err
	}
	return papers, nil
}

func (s *GormStore) CreatePaper(ctx context.Context, paper *models.Paper) (*models.Paper, error) {
	p := *paper
	p.ID = 0
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "external_id"}}, DoNothing: true}).
		Create(&p)
	if res.Error != nil {
		return nil, res.Error
	}
	// Kein Insert: eine parallele Anfrage war schneller
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyExists
	}
	return &p, nil
}

func (s *GormStore) UpdatePaper(ctx context.Context, paper *models.Paper) error {
	res := s.db.WithContext(ctx).Model(&models.Paper{}).
		Where("external_id = ?", paper.ExternalID).
		Select("title", "authors", "abstract", "year", "venue", "venue_id", "journal_quality",
			"citation_count", "reference_count", "url", "doi", "fields_of_study", "keywords").
		Updates(paper)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) RecordConnection(ctx context.Context, conn *models.Connection) (*models.Connection, error) {
	c := *conn
	c.ID = 0
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "source_id"}, {Name: "target_id"}, {Name: "type"}},
		DoUpdates: clause.Set{{
			Column: clause.Column{Name: "strength"},
			Value: clause.Expr{
				SQL: "CASE WHEN connections.strength < excluded.strength THEN excluded.strength ELSE connections.strength END",
			},
		}},
	}).Create(&c).Error
	if err != nil {
		return nil, err
	}

	var stored models.Connection
	if err := s.db.WithContext(ctx).
		Where("source_id = ? AND target_id = ? AND type = ?", c.SourceID, c.TargetID, c.Type).
		First(&stored).Error; err != nil {
		return nil, notFound(err)
	}
	return &stored, nil
}

func (s *GormStore) ListConnections(ctx context.Context, paperID string) ([]models.Connection, error) {
	var conns []models.Connection
	err := s.db.WithContext(ctx).
		Where("source_id = ? OR target_id = ?", paperID, paperID).
		Order("id").
		Find(&conns).Error
	return conns, err
}

func (s *GormStore) GetCacheEntry(ctx context.Context, queryHash string) (*models.SearchCache, error) {
	var e models.SearchCache
	if err := s.db.WithContext(ctx).Where("query_hash = ?", queryHash).First(&e).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *GormStore) PutCacheEntry(ctx context.Context, entry *models.SearchCache) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "query_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"results", "total", "expires_at", "created_at"}),
	}).Create(entry).Error
}

func (s *GormStore) DeleteCacheEntry(ctx context.Context, queryHash string) error {
	return s.db.WithContext(ctx).Where("query_hash = ?", queryHash).Delete(&models.SearchCache{}).Error
}

func (s *GormStore) DeleteExpiredCache(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.SearchCache{})
	return res.RowsAffected, res.Error
}

func (s *GormStore) CreateSearchQuery(ctx context.Context, q *models.SearchQuery) error {
	return s.db.WithContext(ctx).Create(q).Error
}

func (s *GormStore) ListSearchQueries(ctx context.Context, userID uint, limit int) ([]models.SearchQuery, error) {
	var out []models.SearchQuery
	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	u := *user
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&u)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyExists
	}
	return &u, nil
}

func (s *GormStore) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *GormStore) UpdateUserCredential(ctx context.Context, id uint, encryptedKey, baseURL string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"encrypted_api_key": encryptedKey, "api_base_url": baseURL})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateChatSession(ctx context.Context, session *models.ChatSession) (*models.ChatSession, error) {
	cs := *session
	if err := s.db.WithContext(ctx).Create(&cs).Error; err != nil {
		return nil, err
	}
	return &cs, nil
}

func (s *GormStore) GetChatSession(ctx context.Context, id uint) (*models.ChatSession, error) {
	var cs models.ChatSession
	if err := s.db.WithContext(ctx).First(&cs, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &cs, nil
}

func (s *GormStore) ListChatSessions(ctx context.Context, userID uint) ([]models.ChatSession, error) {
	var out []models.ChatSession
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC, id DESC").Find(&out).Error
	return out, err
}

func (s *GormStore) CreateChatMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	m := *msg
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ChatSession{}).Where("id = ?", m.SessionID).Update("updated_at", time.Now())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *GormStore) ListChatMessages(ctx context.Context, sessionID uint) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at, id").Find(&out).Error
	return out, err
}

func (s *GormStore) CreateCollection(ctx context.Context, c *models.Collection) (*models.Collection, error) {
	col := *c
	if err := s.db.WithContext(ctx).Create(&col).Error; err != nil {
		return nil, err
	}
	return &col, nil
}

func (s *GormStore) GetCollection(ctx context.Context, id uint) (*models.Collection, error) {
	var col models.Collection
	if err := s.db.WithContext(ctx).First(&col, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &col, nil
}

func (s *GormStore) ListCollections(ctx context.Context, userID uint) ([]models.Collection, error) {
	var out []models.Collection
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&out).Error
	return out, err
}

func (s *GormStore) AddCollectionPaper(ctx context.Context, collectionID uint, paperID string) error {
	if _, err := s.GetCollection(ctx, collectionID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.CollectionPaper{CollectionID: collectionID, PaperID: paperID}).Error
}

func (s *GormStore) RemoveCollectionPaper(ctx context.Context, collectionID uint, paperID string) error {
	res := s.db.WithContext(ctx).
		Where("collection_id = ? AND paper_id = ?", collectionID, paperID).
		Delete(&models.CollectionPaper{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListCollectionPaperIDs(ctx context.Context, collectionID uint) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.CollectionPaper{}).
		Where("collection_id = ?", collectionID).
		Order("id").
		Pluck("paper_id", &ids).Error
	return ids, err
}
