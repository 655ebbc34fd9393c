package social

import (
	"errors"
	"fmt"

	"moltspace/backend/internal/models"

	"gorm.io/gorm"
)

// SendFriendRequest creates a pending request from the sender to the agent
// with the given handle and notifies the recipient. It fails with
// ErrSelfReference, ErrAlreadyFriends or ErrDuplicateRequest when the pair
// is not in the "none" state.
func SendFriendRequest(db *gorm.DB, from *models.Agent, toHandle string) (*models.FriendRequest, error) {
	var to models.Agent
	if err := db.Where("handle = ?", toHandle).First(&to).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if from.ID == to.ID {
		return nil, ErrSelfReference
	}

	var request models.FriendRequest
	err := db.Transaction(func(tx *gorm.DB) error {
		friends, err := AreFriends(tx, from.ID, to.ID)
		if err != nil {
			return err
		}
		if friends {
			return ErrAlreadyFriends
		}

		// Pending request in either direction blocks a new one.
		var pending int64
		if err := tx.Model(&models.FriendRequest{}).
			Where("(from_agent_id = ? AND to_agent_id = ?) OR (from_agent_id = ? AND to_agent_id = ?)",
				from.ID, to.ID, to.ID, from.ID).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return ErrDuplicateRequest
		}

		request = models.FriendRequest{FromAgentID: from.ID, ToAgentID: to.ID}
		if err := tx.Create(&request).Error; err != nil {
			// A send racing from the opposite direction slips past the count
			// above and lands on the normalized pair index instead.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateRequest
			}
			return err
		}

		msg := fmt.Sprintf("@%s sent you a friend request!", from.Handle)
		return Notify(tx, to.ID, models.NotificationFriendRequest, msg, &from.ID, nil)
	})
	if err != nil {
		return nil, err
	}

	request.FromAgent = *from
	request.ToAgent = to
	return &request, nil
}

// AcceptFriendRequest consumes a pending request addressed to the
// recipient: it materializes the symmetric friendship, bumps karma for both
// parties, deletes the request and notifies the original sender, all inside
// one transaction. Of two concurrent accepts of the same id exactly one
// wins; the loser observes ErrNotFound.
func AcceptFriendRequest(db *gorm.DB, recipient *models.Agent, requestID uint) (*models.Agent, error) {
	var sender models.Agent
	err := db.Transaction(func(tx *gorm.DB) error {
		var request models.FriendRequest
		if err := tx.First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if request.ToAgentID != recipient.ID {
			return ErrForbidden
		}

		// Friendship state is checked first: a stale request next to an
		// existing edge must not be acceptable a second time.
		friends, err := AreFriends(tx, request.FromAgentID, request.ToAgentID)
		if err != nil {
			return err
		}
		if friends {
			return ErrAlreadyFriends
		}

		if err := tx.First(&sender, request.FromAgentID).Error; err != nil {
			return err
		}

		// Deleting the request is the commit point for racing accepts: the
		// loser's delete matches no rows and the whole transaction rolls back.
		res := tx.Delete(&models.FriendRequest{}, request.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := createFriendship(tx, request.FromAgentID, request.ToAgentID); err != nil {
			return err
		}

		if err := AddKarma(tx, request.FromAgentID, KarmaFriendAccepted); err != nil {
			return err
		}
		if err := AddKarma(tx, request.ToAgentID, KarmaFriendAccepted); err != nil {
			return err
		}

		msg := fmt.Sprintf("@%s accepted your friend request! You're now friends.", recipient.Handle)
		return Notify(tx, sender.ID, models.NotificationFriendAccepted, msg, &recipient.ID, nil)
	})
	if err != nil {
		return nil, err
	}
	return &sender, nil
}

// DeclineFriendRequest deletes a pending request addressed to the recipient
// without creating a friendship. No notification, no karma.
func DeclineFriendRequest(db *gorm.DB, recipient *models.Agent, requestID uint) error {
	var request models.FriendRequest
	if err := db.First(&request, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if request.ToAgentID != recipient.ID {
		return ErrForbidden
	}

	res := db.Delete(&models.FriendRequest{}, request.ID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveFriend deletes both directed rows of the edge between the agent and
// the named friend, walks karma back for both parties and prunes any
// top-friend slots referencing the removed edge on either side.
func RemoveFriend(db *gorm.DB, agent *models.Agent, handle string) error {
	var other models.Agent
	if err := db.Where("handle = ?", handle).First(&other).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("(agent_id = ? AND friend_id = ?) OR (agent_id = ? AND friend_id = ?)",
			agent.ID, other.ID, other.ID, agent.ID).
			Delete(&models.Friendship{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFriends
		}

		if err := AddKarma(tx, agent.ID, -KarmaFriendAccepted); err != nil {
			return err
		}
		if err := AddKarma(tx, other.ID, -KarmaFriendAccepted); err != nil {
			return err
		}

		return tx.Where("(agent_id = ? AND friend_id = ?) OR (agent_id = ? AND friend_id = ?)",
			agent.ID, other.ID, other.ID, agent.ID).
			Delete(&models.TopFriend{}).Error
	})
}
