package services

import (
	"context"
	"errors"
	"fmt"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"paper-atlas/models"
	"paper-atlas/providers"
	"paper-atlas/storage"
)

// PaperService stores papers first-write-wins and records connections between them.
type PaperService struct {
	Store    storage.Store
	Provider providers.Provider
	Logger   *zap.Logger
	Metrics  *Metrics

	// Authors memoizes author lookups across requests; nil disables memoization.
	Authors     *gocache.Cache
	EnrichLimit int
}

// NewPaperService creates a PaperService. enrichLimit <= 0 disables author enrichment.
func NewPaperService(store storage.Store, provider providers.Provider, authors *gocache.Cache, enrichLimit int, logger *zap.Logger, metrics *Metrics) *PaperService {
	return &PaperService{
		Store:       store,
		Provider:    provider,
		Logger:      logger,
		Metrics:     metrics,
		Authors:     authors,
		EnrichLimit: enrichLimit,
	}
}

// EnsurePaper returns the stored paper for raw.ExternalID, inserting raw on first sighting.
// An existing row is never overwritten.
func (s *PaperService) EnsurePaper(ctx context.Context, raw models.Paper) (*models.Paper, error) {
	if raw.ExternalID == "" {
		return nil, fmt.Errorf("paper without external id")
	}

	existing, err := s.Store.GetPaper(ctx, raw.ExternalID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load paper %s: %w", raw.ExternalID, err)
	}

	paper := raw
	paper.Authors = s.enrichAuthors(ctx, raw.Authors)
	applyPaperDefaults(&paper)

	created, err := s.Store.CreatePaper(ctx, &paper)
	if errors.Is(err, storage.ErrAlreadyExists) {
		// a concurrent request inserted the same paper first
		s.Logger.Debug("Paper inserted concurrently, using existing row", zap.String("paperId", raw.ExternalID))
		return s.Store.GetPaper(ctx, raw.ExternalID)
	}
	if err != nil {
		return nil, fmt.Errorf("insert paper %s: %w", raw.ExternalID, err)
	}
	s.Metrics.PapersInserted.Inc()
	return created, nil
}

func applyPaperDefaults(p *models.Paper) {
	if p.Title == "" {
		p.Title = "Untitled"
	}
	if p.Authors == nil {
		p.Authors = []models.Author{}
	}
	if p.FieldsOfStudy == nil {
		p.FieldsOfStudy = []string{}
	}
	if p.Keywords == nil {
		p.Keywords = []string{}
	}
}

// enrichAuthors fetches institution and h-index for the first EnrichLimit authors
// that carry an author id. Failures keep the original author data.
func (s *PaperService) enrichAuthors(ctx context.Context, authors []models.Author) []models.Author {
	if s.EnrichLimit <= 0 || len(authors) == 0 {
		return authors
	}

	out := make([]models.Author, len(authors))
	copy(out, authors)

	var g errgroup.Group
	picked := 0
	for i := range out {
		if picked >= s.EnrichLimit {
			break
		}
		if out[i].AuthorID == "" {
			continue
		}
		picked++
		i := i
		g.Go(func() error {
			details, err := s.author(ctx, out[i].AuthorID)
			if err != nil {
				s.Logger.Debug("Author enrichment failed", zap.String("authorId", out[i].AuthorID), zap.Error(err))
				return nil
			}
			if len(details.Affiliations) > 0 {
				out[i].Affiliations = details.Affiliations
				out[i].Institution = details.Affiliations[0]
			}
			out[i].HIndex = details.HIndex
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *PaperService) author(ctx context.Context, id string) (*providers.AuthorDetails, error) {
	if s.Authors != nil {
		if v, ok := s.Authors.Get(id); ok {
			return v.(*providers.AuthorDetails), nil
		}
	}
	details, err := s.Provider.Author(ctx, id)
	s.Metrics.ProviderCalls.WithLabelValues("author", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	if s.Authors != nil {
		s.Authors.SetDefault(id, details)
	}
	return details, nil
}

// RecordConnection stores a directed edge. Influential edges get strength 2, others 1.
func (s *PaperService) RecordConnection(ctx context.Context, source, target, connType string, influential bool) (*models.Connection, error) {
	if !models.ValidConnectionType(connType) {
		return nil, fmt.Errorf("invalid connection type %q", connType)
	}
	strength := 1
	if influential {
		strength = 2
	}
	conn, err := s.Store.RecordConnection(ctx, &models.Connection{
		SourceID: source,
		TargetID: target,
		Type:     connType,
		Strength: strength,
	})
	if err != nil {
		return nil, fmt.Errorf("record %s %s->%s: %w", connType, source, target, err)
	}
	s.Metrics.ConnectionsRecorded.WithLabelValues(connType).Inc()
	return conn, nil
}

// Paper returns the stored paper or fetches and stores it from the provider.
func (s *PaperService) Paper(ctx context.Context, id string) (*models.Paper, error) {
	p, err := s.Store.GetPaper(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	raw, err := s.Provider.Paper(ctx, id)
	s.Metrics.ProviderCalls.WithLabelValues("paper", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	return s.EnsurePaper(ctx, *raw)
}

// Citations fetches papers citing id, stores them and records citing -> id edges.
func (s *PaperService) Citations(ctx context.Context, id string, limit int) ([]models.Paper, error) {
	edges, err := s.Provider.Citations(ctx, id, limit)
	s.Metrics.ProviderCalls.WithLabelValues("citations", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	return s.storeEdges(ctx, id, edges, models.ConnectionCitation, true)
}

// References fetches papers cited by id, stores them and records id -> referenced edges.
func (s *PaperService) References(ctx context.Context, id string, limit int) ([]models.Paper, error) {
	edges, err := s.Provider.References(ctx, id, limit)
	s.Metrics.ProviderCalls.WithLabelValues("references", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	return s.storeEdges(ctx, id, edges, models.ConnectionReference, false)
}

func (s *PaperService) storeEdges(ctx context.Context, id string, edges []providers.Edge, connType string, incoming bool) ([]models.Paper, error) {
	papers := make([]models.Paper, 0, len(edges))
	for _, e := range edges {
		p, err := s.EnsurePaper(ctx, e.Paper)
		if err != nil {
			return nil, err
		}
		source, target := id, p.ExternalID
		if incoming {
			source, target = p.ExternalID, id
		}
		if _, err := s.RecordConnection(ctx, source, target, connType, e.Influential); err != nil {
			return nil, err
		}
		papers = append(papers, *p)
	}
	return papers, nil
}
