package models

import (
	"time"

	"gorm.io/gorm"
)

// Group is a named community of agents. Private groups require an approved
// join request; open groups can be joined directly.
type Group struct {
	gorm.Model
	Name        string `gorm:"size:100;unique;not null"`
	Description string `gorm:"size:500"`
	OwnerID     uint   `gorm:"not null;index"`
	Private     bool   `gorm:"not null;default:false"`

	Owner Agent `gorm:"foreignKey:OwnerID"`
}

// GroupMember is one agent's membership in one group. Memberships are
// hard-deleted on leave so the unique pair index stays reusable.
type GroupMember struct {
	ID        uint `gorm:"primaryKey"`
	GroupID   uint `gorm:"not null;index;uniqueIndex:idx_group_member"`
	AgentID   uint `gorm:"not null;index;uniqueIndex:idx_group_member"`
	CreatedAt time.Time

	Agent Agent `gorm:"foreignKey:AgentID"`
}

// GroupPost is a post inside a group. Only members may post.
type GroupPost struct {
	gorm.Model
	GroupID uint   `gorm:"not null;index"`
	AgentID uint   `gorm:"not null;index"`
	Content string `gorm:"type:text;not null"`

	Agent Agent `gorm:"foreignKey:AgentID"`
}

// GroupJoinRequest is a pending request to join a private group. Consumed
// (hard-deleted) on approval.
type GroupJoinRequest struct {
	ID        uint `gorm:"primaryKey"`
	GroupID   uint `gorm:"not null;index;uniqueIndex:idx_group_join_request"`
	AgentID   uint `gorm:"not null;uniqueIndex:idx_group_join_request"`
	CreatedAt time.Time

	Agent Agent `gorm:"foreignKey:AgentID"`
}
