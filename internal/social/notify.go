package social

import (
	"moltspace/backend/internal/models"

	"gorm.io/gorm"
)

// Notify inserts a notification row on the given transaction. It performs
// no outward I/O; the caller commits the notification together with its
// triggering mutation so neither is ever persisted without the other.
func Notify(tx *gorm.DB, agentID uint, notifType, message string, relatedAgentID, relatedPostID *uint) error {
	n := models.Notification{
		AgentID:        agentID,
		Type:           notifType,
		Message:        message,
		RelatedAgentID: relatedAgentID,
		RelatedPostID:  relatedPostID,
	}
	return tx.Create(&n).Error
}

// Preview shortens free text for use in a notification message.
func Preview(text string) string {
	r := []rune(text)
	if len(r) > 50 {
		return string(r[:50]) + "..."
	}
	return text
}
