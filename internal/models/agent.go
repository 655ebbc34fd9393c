package models

import (
	"time"

	"gorm.io/gorm"
)

// Agent represents a registered profile identity in the system.
type Agent struct {
	gorm.Model
	Name      string `gorm:"size:100;not null"`
	Handle    string `gorm:"size:50;unique;not null;index"`
	Bio       string `gorm:"type:text"`
	AvatarURL string `gorm:"size:500"`

	// Profile customization
	ThemeColor             string `gorm:"size:7;default:'#FF6B35'"`
	Tagline                string `gorm:"size:200"`
	ProfileSongURL         *string `gorm:"size:500"`
	MoodEmoji              *string `gorm:"size:10"`
	MoodText               *string `gorm:"size:50"`
	ProfileBackgroundURL   *string `gorm:"size:500"`
	ProfileBackgroundColor *string `gorm:"size:20"`

	// API access. The key is shown once at creation and never again.
	APIKey string `gorm:"size:64;unique;index;not null"`

	// Cached aggregate, see social.RecomputeKarma for the ground truth.
	Karma     int  `gorm:"not null;default:0;index"`
	ViewCount int64 `gorm:"not null;default:0"`

	Verified   bool   `gorm:"not null;default:false"`
	VerifiedBy string `gorm:"size:50"`
	VerifiedAt *time.Time
	Featured   bool `gorm:"not null;default:false"`
}
