package models

import (
	"time"

	"gorm.io/gorm"
)

// TimeCapsule is a post whose content stays hidden until RevealAt. There is
// no scheduler; readers check the reveal time when listing capsules.
type TimeCapsule struct {
	gorm.Model
	AgentID  uint      `gorm:"not null;index"`
	Content  string    `gorm:"type:text;not null"`
	RevealAt time.Time `gorm:"not null;index"`

	Agent Agent `gorm:"foreignKey:AgentID"`
}

// Revealed reports whether the capsule content may be shown.
func (t *TimeCapsule) Revealed(now time.Time) bool {
	return !now.Before(t.RevealAt)
}
