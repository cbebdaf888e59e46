package models

import (
	"time"
)

// Kanten-Typen einer Connection.
const (
	ConnectionCitation  = "citation"
	ConnectionReference = "reference"
	ConnectionSemantic  = "semantic"
)

// Connection modelliert eine gerichtete Kante zwischen zwei Papers (externe IDs).
// Bei "citation" zitiert Source das Ziel-Paper, bei "reference" referenziert Source das Ziel.
type Connection struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt"`

	SourceID string `json:"source" gorm:"index:idx_connections_edge,unique;index:idx_connections_source;size:128;not null"`
	TargetID string `json:"target" gorm:"index:idx_connections_edge,unique;index:idx_connections_target;size:128;not null"`
	Type     string `json:"type" gorm:"index:idx_connections_edge,unique;size:16;not null"`
	// 1 = normal, 2 = vom Provider als "influential" markiert
	Strength int `json:"strength" gorm:"not null;default:1"`
}

func (Connection) TableName() string { return "connections" }

// ValidConnectionType prüft, ob t ein bekannter Kanten-Typ ist.
func ValidConnectionType(t string) bool {
	switch t {
	case ConnectionCitation, ConnectionReference, ConnectionSemantic:
		return true
	}
	return false
}
