package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"paper-atlas/config"
	"paper-atlas/models"
	"paper-atlas/providers"

	"go.uber.org/zap"
)

const paperFields = "paperId,title,abstract,year,venue,publicationVenue,journal,citationCount,referenceCount,url,externalIds,fieldsOfStudy,authors"

// Fetcher implementiert das Provider-Interface für die Semantic Scholar Graph API.
type Fetcher struct {
	BaseURL string
	APIKey  string
	Logger  *zap.Logger
	client  *http.Client
}

// NewFetcher erstellt einen neuen Semantic Scholar Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		BaseURL: strings.TrimRight(cfg.S2BaseURL, "/"),
		APIKey:  cfg.S2APIKey,
		Logger:  logger,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return "semanticscholar"
}

// Search führt die Suche auf Semantic Scholar aus.
func (f *Fetcher) Search(ctx context.Context, params providers.SearchParams) (*providers.SearchResult, error) {
	log := f.Logger.With(zap.String("query", params.Query))
	log.Info("Starte Suche auf Semantic Scholar.")

	q := url.Values{}
	q.Set("query", params.Query)
	q.Set("fields", paperFields)
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Field != "" {
		q.Set("fieldsOfStudy", params.Field)
	}
	if params.Year != "" {
		q.Set("year", params.Year)
	}
	if params.MinCitations != nil {
		q.Set("minCitationCount", strconv.Itoa(*params.MinCitations))
	}

	var resp searchResponse
	if err := f.get(ctx, "/paper/search", q, &resp); err != nil {
		return nil, err
	}

	papers := make([]models.Paper, 0, len(resp.Data))
	for i := range resp.Data {
		if resp.Data[i].PaperID == "" {
			continue
		}
		papers = append(papers, mapPaper(&resp.Data[i]))
	}
	log.Info("Suche auf Semantic Scholar abgeschlossen", zap.Int("found_papers", len(papers)), zap.Int("total", resp.Total))
	return &providers.SearchResult{Papers: papers, Total: resp.Total}, nil
}

// Paper lädt die Metadaten eines einzelnen Papers.
func (f *Fetcher) Paper(ctx context.Context, id string) (*models.Paper, error) {
	q := url.Values{}
	q.Set("fields", paperFields)

	var resp apiPaper
	if err := f.get(ctx, "/paper/"+url.PathEscape(id), q, &resp); err != nil {
		return nil, err
	}
	p := mapPaper(&resp)
	return &p, nil
}

// Citations liefert die Papers, die id zitieren.
func (f *Fetcher) Citations(ctx context.Context, id string, limit int) ([]providers.Edge, error) {
	var resp citationsResponse
	if err := f.get(ctx, "/paper/"+url.PathEscape(id)+"/citations", edgeQuery("citingPaper", limit), &resp); err != nil {
		return nil, err
	}
	edges := make([]providers.Edge, 0, len(resp.Data))
	for i := range resp.Data {
		// Semantic Scholar liefert gelegentlich leere Einträge ohne paperId
		if resp.Data[i].CitingPaper.PaperID == "" {
			continue
		}
		edges = append(edges, providers.Edge{Paper: mapPaper(&resp.Data[i].CitingPaper), Influential: resp.Data[i].IsInfluential})
	}
	return edges, nil
}

// References liefert die Papers, die von id zitiert werden.
func (f *Fetcher) References(ctx context.Context, id string, limit int) ([]providers.Edge, error) {
	var resp referencesResponse
	if err := f.get(ctx, "/paper/"+url.PathEscape(id)+"/references", edgeQuery("citedPaper", limit), &resp); err != nil {
		return nil, err
	}
	edges := make([]providers.Edge, 0, len(resp.Data))
	for i := range resp.Data {
		if resp.Data[i].CitedPaper.PaperID == "" {
			continue
		}
		edges = append(edges, providers.Edge{Paper: mapPaper(&resp.Data[i].CitedPaper), Influential: resp.Data[i].IsInfluential})
	}
	return edges, nil
}

// Author lädt Affiliations und h-Index eines Autors.
func (f *Fetcher) Author(ctx context.Context, authorID string) (*providers.AuthorDetails, error) {
	q := url.Values{}
	q.Set("fields", "name,affiliations,hIndex")

	var resp authorResponse
	if err := f.get(ctx, "/author/"+url.PathEscape(authorID), q, &resp); err != nil {
		return nil, err
	}
	return &providers.AuthorDetails{
		AuthorID:     resp.AuthorID,
		Name:         resp.Name,
		Affiliations: resp.Affiliations,
		HIndex:       resp.HIndex,
	}, nil
}

func edgeQuery(nested string, limit int) url.Values {
	fields := make([]string, 0, 16)
	fields = append(fields, "isInfluential")
	for _, f := range strings.Split(paperFields, ",") {
		fields = append(fields, nested+"."+f)
	}
	q := url.Values{}
	q.Set("fields", strings.Join(fields, ","))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

func (f *Fetcher) get(ctx context.Context, path string, q url.Values, out any) error {
	reqURL := f.BaseURL + path
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}
	f.Logger.Debug("Rufe Semantic Scholar API auf", zap.String("url", reqURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.APIKey != "" {
		req.Header.Set("x-api-key", f.APIKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("semantic scholar request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read semantic scholar response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return providers.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errorResponse
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &e) == nil {
			if e.Message != "" {
				msg = e.Message
			} else if e.Error != "" {
				msg = e.Error
			}
		}
		return fmt.Errorf("semantic scholar API error (%d): %s", resp.StatusCode, msg)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse semantic scholar response: %w", err)
	}
	return nil
}

// mapPaper konvertiert ein Semantic Scholar Paper in unser internes Paper-Modell.
func mapPaper(p *apiPaper) models.Paper {
	paper := models.Paper{
		ExternalID:    p.PaperID,
		Title:         p.Title,
		Venue:         p.Venue,
		URL:           p.URL,
		FieldsOfStudy: p.FieldsOfStudy,
	}
	if p.Abstract != nil {
		paper.Abstract = *p.Abstract
	}
	if p.Year != nil {
		paper.Year = *p.Year
	}
	if p.CitationCount != nil {
		paper.CitationCount = *p.CitationCount
	}
	if p.ReferenceCount != nil {
		paper.ReferenceCount = *p.ReferenceCount
	}
	if paper.Venue == "" && p.Journal != nil {
		paper.Venue = p.Journal.Name
	}
	if p.PublicationVenue != nil {
		paper.VenueID = p.PublicationVenue.ID
	}
	if doi, ok := p.ExternalIDs["DOI"].(string); ok {
		paper.DOI = doi
	}
	for _, a := range p.Authors {
		paper.Authors = append(paper.Authors, models.Author{Name: a.Name, AuthorID: a.AuthorID})
	}
	return paper
}
