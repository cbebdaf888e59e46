package models

import "time"

// Collection ist eine benannte, optional öffentliche Sammlung von Papers eines Nutzers.
type Collection struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserID      uint   `json:"userId" gorm:"index;not null"`
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description,omitempty" gorm:"type:text"`
	IsPublic    bool   `json:"isPublic" gorm:"default:false"`
}

// TableName gibt explizit den Tabellennamen an.
func (Collection) TableName() string {
	return "collections"
}

// CollectionPaper verknüpft eine Collection mit der externen ID eines Papers.
type CollectionPaper struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt"`

	CollectionID uint   `json:"collectionId" gorm:"index:idx_collection_papers_member,unique;not null"`
	PaperID      string `json:"paperId" gorm:"index:idx_collection_papers_member,unique;size:128;not null"`
}

func (CollectionPaper) TableName() string { return "collection_papers" }
