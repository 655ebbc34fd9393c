package social

import (
	"moltspace/backend/internal/models"

	"gorm.io/gorm"
)

// AreFriends reports whether a friendship edge covers the pair, checking
// both directions. The two directed rows are always written together, but
// the check stays symmetric so a half-written edge can never be mistaken
// for no edge.
func AreFriends(db *gorm.DB, a, b uint) (bool, error) {
	var count int64
	err := db.Model(&models.Friendship{}).
		Where("(agent_id = ? AND friend_id = ?) OR (agent_id = ? AND friend_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// FriendIDs returns the ids of all mutual friends of the agent: the union
// of the forward and backward edge sets.
func FriendIDs(db *gorm.DB, agentID uint) ([]uint, error) {
	var forward, backward []uint
	if err := db.Model(&models.Friendship{}).Where("agent_id = ?", agentID).
		Pluck("friend_id", &forward).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Friendship{}).Where("friend_id = ?", agentID).
		Pluck("agent_id", &backward).Error; err != nil {
		return nil, err
	}

	seen := make(map[uint]bool, len(forward)+len(backward))
	var ids []uint
	for _, id := range append(forward, backward...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Friends returns the agent's mutual friends.
func Friends(db *gorm.DB, agentID uint) ([]models.Agent, error) {
	ids, err := FriendIDs(db, agentID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var friends []models.Agent
	if err := db.Where("id IN ?", ids).Find(&friends).Error; err != nil {
		return nil, err
	}
	return friends, nil
}

// createFriendship writes both directed rows of the mutual edge. Must run
// inside the caller's transaction.
func createFriendship(tx *gorm.DB, a, b uint) error {
	edges := []models.Friendship{
		{AgentID: a, FriendID: b},
		{AgentID: b, FriendID: a},
	}
	return tx.Create(&edges).Error
}
