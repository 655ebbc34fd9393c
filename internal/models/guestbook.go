package models

import "gorm.io/gorm"

// GuestbookEntry is a message left on another agent's profile.
type GuestbookEntry struct {
	gorm.Model
	ProfileAgentID uint   `gorm:"not null;index"`
	AuthorAgentID  uint   `gorm:"not null;index"`
	Message        string `gorm:"size:500;not null"`

	ProfileAgent Agent `gorm:"foreignKey:ProfileAgentID"`
	AuthorAgent  Agent `gorm:"foreignKey:AuthorAgentID"`
}
