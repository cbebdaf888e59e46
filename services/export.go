package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"paper-atlas/models"
)

const maxReferenceAuthors = 6

// FormatReference renders a paper into a compact reference string.
func FormatReference(p models.Paper) string {
	// Authors: join with comma; limit to 6 then et al.
	names := p.AuthorNames()
	etAl := len(names) > maxReferenceAuthors
	if etAl {
		names = names[:maxReferenceAuthors]
	}
	authors := strings.Join(names, ", ")
	if authors == "" {
		authors = "Unknown Authors"
	} else if etAl {
		authors += " et al."
	}
	year := "n.d."
	if p.Year > 0 {
		year = fmt.Sprintf("%d", p.Year)
	}
	title := p.Title
	if title == "" {
		title = "Untitled"
	}
	tail := ""
	if p.DOI != "" {
		tail = " doi:" + p.DOI
	}
	if p.Venue != "" {
		return fmt.Sprintf("%s (%s). %s. %s.%s", authors, year, title, p.Venue, tail)
	}
	return fmt.Sprintf("%s (%s). %s.%s", authors, year, title, tail)
}

// Bibliography renders papers as a numbered reference list.
func Bibliography(name string, papers []models.Paper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", name)
	for i, p := range papers {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, FormatReference(p))
	}
	return b.String()
}

// Export uploads the bibliography of a collection owned by userID and returns its link.
func (s *CollectionService) Export(ctx context.Context, userID, id uint) (string, error) {
	if s.Objects == nil {
		return "", ErrExportDisabled
	}
	col, err := s.owned(ctx, userID, id)
	if err != nil {
		return "", err
	}
	papers, err := s.papers(ctx, col.ID)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("exports/user-%d/collection-%d-%s.txt", userID, col.ID, time.Now().UTC().Format("2006-01-02T15-04-05Z"))
	link, err := s.Objects.Upload(ctx, key, "text/plain; charset=utf-8", []byte(Bibliography(col.Name, papers)))
	if err != nil {
		return "", err
	}
	s.Logger.Info("Collection exported", zap.Uint("collectionId", col.ID), zap.Int("papers", len(papers)), zap.String("key", key))
	return link, nil
}
