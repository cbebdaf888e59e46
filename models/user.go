package models

import "time"

// User ist ein registrierter Nutzer. Der LLM-API-Key wird nur verschlüsselt abgelegt.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Email           string `json:"email" gorm:"uniqueIndex;size:320;not null"`
	PasswordHash    string `json:"-" gorm:"not null"`
	EncryptedAPIKey string `json:"-" gorm:"type:text"`
	APIBaseURL      string `json:"apiBaseUrl,omitempty"`
	Active          bool   `json:"active" gorm:"default:true"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (User) TableName() string {
	return "users"
}

// HasAPIKey meldet, ob ein verschlüsselter Key hinterlegt ist.
func (u *User) HasAPIKey() bool {
	return u.EncryptedAPIKey != ""
}
