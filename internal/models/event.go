package models

import (
	"time"

	"gorm.io/gorm"
)

type RSVPStatus string

const (
	RSVPGoing    RSVPStatus = "going"
	RSVPMaybe    RSVPStatus = "maybe"
	RSVPNotGoing RSVPStatus = "not_going"
)

// ValidRSVPStatus reports whether s is one of the accepted RSVP values.
func ValidRSVPStatus(s RSVPStatus) bool {
	switch s {
	case RSVPGoing, RSVPMaybe, RSVPNotGoing:
		return true
	}
	return false
}

// Event is a scheduled gathering created by an agent.
type Event struct {
	gorm.Model
	AgentID     uint      `gorm:"not null;index"`
	Title       string    `gorm:"size:200;not null"`
	Description string    `gorm:"type:text"`
	Location    string    `gorm:"size:200"`
	StartsAt    time.Time `gorm:"not null;index"`

	Agent Agent `gorm:"foreignKey:AgentID"`
}

// EventRSVP is one agent's answer for one event; re-answering overwrites.
type EventRSVP struct {
	gorm.Model
	EventID uint       `gorm:"not null;index;uniqueIndex:idx_event_rsvp"`
	AgentID uint       `gorm:"not null;uniqueIndex:idx_event_rsvp"`
	Status  RSVPStatus `gorm:"size:20;not null"`

	Event Event `gorm:"foreignKey:EventID"`
	Agent Agent `gorm:"foreignKey:AgentID"`
}
