package models

import (
	"time"

	"gorm.io/datatypes"
)

// Author beschreibt einen Autor eines Papers, optional angereichert um Institution und h-Index.
type Author struct {
	Name         string   `json:"name"`
	AuthorID     string   `json:"authorId,omitempty"`
	Affiliations []string `json:"affiliations,omitempty"`
	Institution  string   `json:"institution,omitempty"`
	HIndex       *int     `json:"hIndex,omitempty"`
}

// Paper repräsentiert eine wissenschaftliche Publikation mit den Metadaten des Bibliographie-Providers.
// Ein einmal gespeichertes Paper wird durch spätere Suchergebnisse nicht überschrieben.
type Paper struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`

	ExternalID string                      `json:"paperId" gorm:"column:external_id;uniqueIndex;size:128;not null"`
	Title      string                      `json:"title" gorm:"not null"`
	Authors    datatypes.JSONSlice[Author] `json:"authors"`
	Abstract   string                      `json:"abstract,omitempty" gorm:"type:text"`
	Year       int                         `json:"year,omitempty"`
	Venue      string                      `json:"venue,omitempty"`
	VenueID    string                      `json:"venueId,omitempty"`

	// Optionaler Qualitätsindex der Zeitschrift (z.B. SJR)
	JournalQuality *float64                    `json:"journalQuality,omitempty"`
	CitationCount  int                         `json:"citationCount"`
	ReferenceCount int                         `json:"referenceCount"`
	URL            string                      `json:"url,omitempty"`
	DOI            string                      `json:"doi,omitempty" gorm:"column:doi;index"`
	FieldsOfStudy  datatypes.JSONSlice[string] `json:"fieldsOfStudy"`
	Keywords       datatypes.JSONSlice[string] `json:"keywords"`
}

// TableName gibt explizit den Tabellennamen an.
func (Paper) TableName() string {
	return "papers"
}

// AuthorNames liefert die Namen aller Autoren in Reihenfolge.
func (p *Paper) AuthorNames() []string {
	names := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}
