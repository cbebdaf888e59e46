package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"paper-atlas/models"
	"paper-atlas/storage"
)

// CollectionDetail is a collection with its member papers.
type CollectionDetail struct {
	models.Collection
	Papers []models.Paper `json:"papers"`
}

// CollectionService manages user collections of papers.
type CollectionService struct {
	Store   storage.Store
	Papers  *PaperService
	Objects storage.ObjectStore
	Logger  *zap.Logger
}

// NewCollectionService creates a CollectionService. objects may be nil; exports are then disabled.
func NewCollectionService(store storage.Store, papers *PaperService, objects storage.ObjectStore, logger *zap.Logger) *CollectionService {
	return &CollectionService{Store: store, Papers: papers, Objects: objects, Logger: logger}
}

// Create adds a new collection for userID.
func (s *CollectionService) Create(ctx context.Context, userID uint, name, description string, public bool) (*models.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Msg: "name is required"}
	}
	return s.Store.CreateCollection(ctx, &models.Collection{
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(description),
		IsPublic:    public,
	})
}

// List returns the collections owned by userID.
func (s *CollectionService) List(ctx context.Context, userID uint) ([]models.Collection, error) {
	return s.Store.ListCollections(ctx, userID)
}

// Get returns a collection with its papers if userID owns it or it is public.
// userID 0 stands for an anonymous caller.
func (s *CollectionService) Get(ctx context.Context, userID, id uint) (*CollectionDetail, error) {
	col, err := s.Store.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	if !col.IsPublic && (userID == 0 || col.UserID != userID) {
		return nil, storage.ErrNotFound
	}
	papers, err := s.papers(ctx, col.ID)
	if err != nil {
		return nil, err
	}
	return &CollectionDetail{Collection: *col, Papers: papers}, nil
}

func (s *CollectionService) papers(ctx context.Context, id uint) ([]models.Paper, error) {
	ids, err := s.Store.ListCollectionPaperIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	stored, err := s.Store.ListPapers(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Paper, len(stored))
	for _, p := range stored {
		byID[p.ExternalID] = p
	}
	// membership order
	out := make([]models.Paper, 0, len(ids))
	for _, pid := range ids {
		if p, ok := byID[pid]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *CollectionService) owned(ctx context.Context, userID, id uint) (*models.Collection, error) {
	col, err := s.Store.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	if col.UserID != userID {
		return nil, ErrForbidden
	}
	return col, nil
}

// AddPaper stores paperID if needed and adds it to the collection. Adding twice is a no-op.
func (s *CollectionService) AddPaper(ctx context.Context, userID, id uint, paperID string) error {
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return &ValidationError{Msg: "paperId is required"}
	}
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	p, err := s.Papers.Paper(ctx, paperID)
	if err != nil {
		return err
	}
	return s.Store.AddCollectionPaper(ctx, id, p.ExternalID)
}

// RemovePaper drops paperID from the collection.
func (s *CollectionService) RemovePaper(ctx context.Context, userID, id uint, paperID string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.Store.RemoveCollectionPaper(ctx, id, paperID)
}
