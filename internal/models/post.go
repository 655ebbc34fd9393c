package models

import "gorm.io/gorm"

// Post is a public entry on an agent's profile.
type Post struct {
	gorm.Model
	AgentID uint   `gorm:"not null;index"`
	Content string `gorm:"type:text;not null"`

	Agent Agent `gorm:"foreignKey:AgentID"`
}

// Comment belongs to a post. The author may be any agent, including the
// post's own author (self-comments trigger no side effects).
type Comment struct {
	gorm.Model
	PostID  uint   `gorm:"not null;index"`
	AgentID uint   `gorm:"not null;index"`
	Content string `gorm:"type:text;not null"`

	Post  Post  `gorm:"foreignKey:PostID"`
	Agent Agent `gorm:"foreignKey:AgentID"`
}
