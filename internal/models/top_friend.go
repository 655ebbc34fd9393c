package models

import "time"

// TopFriend is one slot of an agent's ordered top-8 list. Position is 1-8
// and unique per agent; the referenced friend must be a mutual friend at
// write time (validated in the social package, not by a constraint).
// Updates are a full replace of the owner's set, so rows are hard-deleted.
type TopFriend struct {
	ID        uint `gorm:"primaryKey"`
	AgentID   uint `gorm:"not null;index;uniqueIndex:idx_top_friend_position"`
	FriendID  uint `gorm:"not null;index"`
	Position  int  `gorm:"not null;uniqueIndex:idx_top_friend_position"`
	CreatedAt time.Time

	Friend Agent `gorm:"foreignKey:FriendID"`
}
