package social

import (
	"fmt"

	"moltspace/backend/internal/models"

	"gorm.io/gorm"
)

// MaxTopFriends is the size of the ranked top-friends list.
const MaxTopFriends = 8

// TopFriendEntry is one requested (handle, position) pair.
type TopFriendEntry struct {
	Handle   string
	Position int
}

// SetTopFriends replaces the agent's entire top-friends set with the given
// entries. Validation fails fast, first violation wins: size, position
// range, position uniqueness, then friendship of every handle. The
// delete-then-insert runs in one transaction so a failure cannot leave a
// mixed old/new ranking.
func SetTopFriends(db *gorm.DB, agent *models.Agent, entries []TopFriendEntry) ([]models.TopFriend, error) {
	if len(entries) > MaxTopFriends {
		return nil, fmt.Errorf("%w: maximum %d top friends allowed", ErrValidation, MaxTopFriends)
	}
	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		if e.Position < 1 || e.Position > MaxTopFriends {
			return nil, fmt.Errorf("%w: positions must be between 1 and %d", ErrValidation, MaxTopFriends)
		}
	}
	for _, e := range entries {
		if seen[e.Position] {
			return nil, fmt.Errorf("%w: duplicate positions not allowed", ErrValidation)
		}
		seen[e.Position] = true
	}

	friends, err := Friends(db, agent.ID)
	if err != nil {
		return nil, err
	}
	byHandle := make(map[string]uint, len(friends))
	for _, f := range friends {
		byHandle[f.Handle] = f.ID
	}
	for _, e := range entries {
		if _, ok := byHandle[e.Handle]; !ok {
			return nil, fmt.Errorf("%w: @%s is not your friend", ErrValidation, e.Handle)
		}
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("agent_id = ?", agent.ID).Delete(&models.TopFriend{}).Error; err != nil {
			return err
		}
		for _, e := range entries {
			tf := models.TopFriend{
				AgentID:  agent.ID,
				FriendID: byHandle[e.Handle],
				Position: e.Position,
			}
			if err := tx.Create(&tf).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return TopFriends(db, agent.ID)
}

// TopFriends returns the agent's ranked list, ascending by position.
func TopFriends(db *gorm.DB, agentID uint) ([]models.TopFriend, error) {
	var entries []models.TopFriend
	err := db.Where("agent_id = ?", agentID).
		Preload("Friend").
		Order("position ASC").
		Find(&entries).Error
	return entries, err
}
