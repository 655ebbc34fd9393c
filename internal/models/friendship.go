package models

import (
	"time"

	"gorm.io/gorm"
)

// FriendRequest is a directed, pending proposal from one agent to another.
// At most one pending request may exist per unordered pair, in either
// direction, and none while the pair is already friends. Requests are
// hard-deleted on accept and decline so the unique index never traps a
// tombstone.
type FriendRequest struct {
	ID          uint `gorm:"primaryKey"`
	FromAgentID uint `gorm:"not null;index"`
	ToAgentID   uint `gorm:"not null;index"`
	// PairMin and PairMax hold the unordered pair in normalized order so
	// idx_request_pair rejects a second pending request regardless of
	// direction, even when two sends race from opposite sides.
	PairMin   uint `gorm:"not null;uniqueIndex:idx_request_pair"`
	PairMax   uint `gorm:"not null;uniqueIndex:idx_request_pair"`
	CreatedAt time.Time

	FromAgent Agent `gorm:"foreignKey:FromAgentID"`
	ToAgent   Agent `gorm:"foreignKey:ToAgentID"`
}

// BeforeCreate normalizes the pair columns from the directed endpoints.
func (r *FriendRequest) BeforeCreate(*gorm.DB) error {
	if r.FromAgentID < r.ToAgentID {
		r.PairMin, r.PairMax = r.FromAgentID, r.ToAgentID
	} else {
		r.PairMin, r.PairMax = r.ToAgentID, r.FromAgentID
	}
	return nil
}

// Friendship is one direction of a mutual edge. An accepted friendship is
// always materialized as two rows (A->B and B->A) written in the same
// transaction, so the symmetry is explicit and queryable from either side.
// The composite primary key rules out duplicate edges.
type Friendship struct {
	AgentID   uint `gorm:"primaryKey"`
	FriendID  uint `gorm:"primaryKey"`
	CreatedAt time.Time

	Agent  Agent `gorm:"foreignKey:AgentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Friend Agent `gorm:"foreignKey:FriendID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
