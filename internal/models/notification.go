package models

import "gorm.io/gorm"

// Notification types emitted by the mutation handlers.
const (
	NotificationFriendRequest     = "friend_request"
	NotificationFriendAccepted    = "friend_accepted"
	NotificationNewComment        = "new_comment"
	NotificationGuestbook         = "guestbook"
	NotificationNewMessage        = "new_message"
	NotificationBadgeAwarded      = "badge_awarded"
	NotificationGroupJoinRequest  = "group_join_request"
	NotificationGroupJoinApproved = "group_join_approved"
)

// Notification is an event record addressed to one agent. It is only ever
// created inside the transaction of the mutation that caused it, and the
// read flag moves one way (unread -> read).
type Notification struct {
	gorm.Model
	AgentID uint   `gorm:"not null;index"`
	Type    string `gorm:"size:50;not null"`
	Message string `gorm:"type:text;not null"`
	Read    bool   `gorm:"not null;default:false;index"`

	RelatedAgentID *uint
	RelatedPostID  *uint

	RelatedAgent *Agent `gorm:"foreignKey:RelatedAgentID"`
}
