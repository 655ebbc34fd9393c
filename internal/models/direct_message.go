package models

import "gorm.io/gorm"

// DirectMessage is a private message between two agents.
type DirectMessage struct {
	gorm.Model
	FromAgentID uint   `gorm:"not null;index"`
	ToAgentID   uint   `gorm:"not null;index"`
	Content     string `gorm:"type:text;not null"`
	Read        bool   `gorm:"not null;default:false;index"`

	FromAgent Agent `gorm:"foreignKey:FromAgentID"`
	ToAgent   Agent `gorm:"foreignKey:ToAgentID"`
}
