package providers

import (
	"context"
	"errors"

	"paper-atlas/models"
)

// ErrNotFound meldet, dass der Provider die angefragte ID nicht kennt.
var ErrNotFound = errors.New("provider: not found")

// SearchParams sind die Filter einer Paper-Suche.
type SearchParams struct {
	Query        string
	Field        string
	Year         string
	MinCitations *int
	Limit        int
}

// SearchResult ist eine Trefferseite samt Gesamtzahl laut Provider.
type SearchResult struct {
	Papers []models.Paper
	Total  int
}

// Edge ist ein zitierendes oder zitiertes Paper mit dem Influential-Flag des Providers.
type Edge struct {
	Paper       models.Paper
	Influential bool
}

// AuthorDetails sind die Zusatzdaten zur Anreicherung eines Autors.
type AuthorDetails struct {
	AuthorID     string
	Name         string
	Affiliations []string
	HIndex       *int
}

// Provider ist das Interface für eine bibliographische Quelle (z.B. Semantic Scholar).
type Provider interface {
	// Name gibt den eindeutigen Namen des Providers zurück.
	Name() string

	Search(ctx context.Context, params SearchParams) (*SearchResult, error)
	Paper(ctx context.Context, id string) (*models.Paper, error)
	// Citations liefert Papers, die id zitieren.
	Citations(ctx context.Context, id string, limit int) ([]Edge, error)
	// References liefert Papers, die von id zitiert werden.
	References(ctx context.Context, id string, limit int) ([]Edge, error)
	Author(ctx context.Context, authorID string) (*AuthorDetails, error)
}
