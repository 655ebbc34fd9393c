package models

import (
	"time"

	"gorm.io/gorm"
)

// Badge is an admin-defined award type.
type Badge struct {
	gorm.Model
	Name        string `gorm:"size:100;unique;not null"`
	Description string `gorm:"size:500"`
	Icon        string `gorm:"size:500"`
}

// AgentBadge records a badge awarded to an agent. One award per pair.
type AgentBadge struct {
	gorm.Model
	AgentID   uint   `gorm:"not null;index;uniqueIndex:idx_agent_badge"`
	BadgeID   uint   `gorm:"not null;uniqueIndex:idx_agent_badge"`
	AwardedBy string `gorm:"size:50"`
	AwardedAt time.Time

	Agent Agent `gorm:"foreignKey:AgentID"`
	Badge Badge `gorm:"foreignKey:BadgeID"`
}
