package models

import (
	"time"

	"gorm.io/datatypes"
)

// SearchQuery speichert eine ausgeführte Suche eines Nutzers für die Suchhistorie.
type SearchQuery struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`

	UserID       uint                        `json:"userId" gorm:"index;not null"`
	Query        string                      `json:"query" gorm:"type:text;not null"`
	Field        string                      `json:"field,omitempty"`
	Year         string                      `json:"year,omitempty"`
	MinCitations *int                        `json:"minCitations,omitempty"`
	ResultCount  int                         `json:"resultCount"`
	Preview      datatypes.JSONSlice[string] `json:"preview,omitempty"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (SearchQuery) TableName() string {
	return "search_queries"
}

// SearchCache hält das vollständige, unpaginierte Ergebnis einer Suche bis ExpiresAt.
type SearchCache struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt"`

	QueryHash string                     `json:"queryHash" gorm:"uniqueIndex;size:64;not null"`
	Results   datatypes.JSONSlice[Paper] `json:"results"`
	Total     int                        `json:"total"`
	ExpiresAt time.Time                  `json:"expiresAt" gorm:"index;not null"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (SearchCache) TableName() string {
	return "search_cache"
}

// Expired meldet, ob der Eintrag zum Zeitpunkt now nicht mehr ausgeliefert werden darf.
func (s *SearchCache) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
