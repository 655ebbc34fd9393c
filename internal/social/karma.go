package social

import (
	"moltspace/backend/internal/models"

	"gorm.io/gorm"
)

// Karma deltas applied by the incremental path.
const (
	KarmaFriendAccepted    = 2
	KarmaCommentReceived   = 1
	KarmaGuestbookReceived = 1
)

// AddKarma applies a delta to the agent's cached karma counter, clamped at
// zero. Runs on whatever db/tx handle the caller passes so the bump commits
// with its triggering mutation.
func AddKarma(tx *gorm.DB, agentID uint, delta int) error {
	return tx.Model(&models.Agent{}).
		Where("id = ?", agentID).
		Update("karma", gorm.Expr("CASE WHEN karma + ? < 0 THEN 0 ELSE karma + ? END", delta, delta)).
		Error
}

// RecomputeKarma re-derives karma from current counts and overwrites the
// cached value, returning the old and new values. The formula is
// 2*|friends| + comments received from other agents + guestbook entries
// received. The incremental path can drift (deletions do not always walk
// their deltas back); this is the authoritative repair.
func RecomputeKarma(db *gorm.DB, agent *models.Agent) (oldKarma, newKarma int, err error) {
	oldKarma = agent.Karma

	var friendCount int64
	if err = db.Model(&models.Friendship{}).
		Where("agent_id = ?", agent.ID).
		Count(&friendCount).Error; err != nil {
		return
	}

	var commentsReceived int64
	if err = db.Model(&models.Comment{}).
		Joins("JOIN posts ON posts.id = comments.post_id").
		Where("posts.agent_id = ? AND comments.agent_id <> ?", agent.ID, agent.ID).
		Count(&commentsReceived).Error; err != nil {
		return
	}

	var guestbookReceived int64
	if err = db.Model(&models.GuestbookEntry{}).
		Where("profile_agent_id = ?", agent.ID).
		Count(&guestbookReceived).Error; err != nil {
		return
	}

	newKarma = 2*int(friendCount) + int(commentsReceived) + int(guestbookReceived)

	if err = db.Model(&models.Agent{}).
		Where("id = ?", agent.ID).
		Update("karma", newKarma).Error; err != nil {
		return
	}
	agent.Karma = newKarma
	return
}
