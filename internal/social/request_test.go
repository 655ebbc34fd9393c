package social

import (
	"errors"
	"testing"

	"moltspace/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSendFriendRequest(t *testing.T) {
	db := testDB(t)
	alice := newAgent(t, db, "alice")
	bob := newAgent(t, db, "bob")

	req, err := SendFriendRequest(db, alice, "bob")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, req.FromAgentID)
	assert.Equal(t, bob.ID, req.ToAgentID)

	// Recipient is notified in the same transaction.
	assert.EqualValues(t, 1, notificationCount(t, db, bob.ID, models.NotificationFriendRequest))
}

func TestSendFriendRequestUnknownHandle(t *testing.T) {
	db := testDB(t)
	alice := newAgent(t, db, "alice")

	_, err := SendFriendRequest(db, alice, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSendFriendRequestToSelf(t *testing.T) {
	db := testDB(t)
	alice := newAgent(t, db, "alice")

	_, err := SendFriendRequest(db, alice, "alice")
	assert.ErrorIs(t, err, ErrSelfReference)
}

func TestSendFriendRequestDuplicate(t *testing.T) {
	db := testDB(t)
	alice := newAgent(t, db, "alice")
	bob := newAgent(t, db, "bob")

	_, err := SendFriendRequest(db, alice, "bob")
	require.NoError(t, err)

	_, err = SendFriendRequest(db, alice, "bob")
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	// The reverse direction is blocked by the same pending request.
	_, err = SendFriendRequest(db, bob, "alice")
	assert.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestSendFriendRequestAlreadyFriends(t *testing.T) {
	db := testDB(t)
	alice := newAgent(t, db, "alice")
	bob := newAgent(t, db, "bob")
	befriend(t, db, alice, bob)

	_, err := SendFriendRequest(db, alice, "bob")
	assert.ErrorIs(t, err, ErrAlreadyFriends)
}

func TestAcceptFriendRequest(t *testing.T) {
	db := testDB(t)
	alice := newAgent(t, db, "alice")
	bob := newAgent(t, db, "bob")

	req, err := SendFriendRequest(db, alice, "bob")
	require.NoError(t, err)

	sender, err := AcceptFriendRequest(db, bob, req.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, sender.ID)

	// Mutual from both sides.
	friends, err := AreFriends(db, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, friends)
	friends, err = AreFriends(db, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, friends)

	// The request is consumed.
	var remaining int64
	require.NoError(t, db.Model(&models.FriendRequest{}).Count(&remaining).Error)
	assert.EqualValues(t, 0, remaining)

	// Both parties get the acceptance karma.
	require.NoError(t, db.First(alice, alice.ID).Error)
	require.NoError(t, db.First(bob, bob.ID).Error)
	assert.Equal(t, KarmaFriendAccepted, alice.Karma)
	assert.Equal(t, KarmaFriendAccepted, bob.Karma)

	// The original sender is notified.
	assert.EqualValues(t, 1, notificationCount(t, db, alice.ID, models.NotificationFriendAccepted))
}

func TestAcceptFriendRequestWrongRecipient(t *testing.T) {
	db := testDB(t)
	alice := newAgent(t, db, "alice")
	newAgent(t, db, "bob")
	carol := newAgent(t, db, "carol")

	req, err := SendFriendRequest(db, alice, "bob")
	require.NoError(t, err)

	_, err = AcceptFriendRequest(db, carol, req.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAcceptFriendRequestTwice(t *testing.T) {
	db := testDB(t)
	alice := newAgent(t, db, "alice")
	bob := newAgent(t, db, "bob")

	req, err := SendFriendRequest(db, alice, "bob")
	require.NoError(t, err)

	_, err = AcceptFriendRequest(db, bob, req.ID)
	require.NoError(t, err)

	// Accepting the consumed request again must not double anything.
	_, err = AcceptFriendRequest(db, bob, req.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.First(bob, bob.ID).Error)
	assert.Equal(t, KarmaFriendAccepted, bob.Karma)
}

func TestDeclineFriendRequest(t *testing.T) {
	db := testDB(t)
	alice := newAgent(t, db, "alice")
	bob := newAgent(t, db, "bob")

	req, err := SendFriendRequest(db, alice, "bob")
	require.NoError(t, err)

	require.NoError(t, DeclineFriendRequest(db, bob, req.ID))

	// No edge, no karma, no acceptance notification.
	friends, err := AreFriends(db, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, friends)
	require.NoError(t, db.First(alice, alice.ID).Error)
	assert.Equal(t, 0, alice.Karma)
	assert.EqualValues(t, 0, notificationCount(t, db, alice.ID, models.NotificationFriendAccepted))

	// The pair is back in the "none" state; a fresh request is allowed.
	_, err = SendFriendRequest(db, alice, "bob")
	assert.NoError(t, err)
}

func TestDeclineFriendRequestWrongRecipient(t *testing.T) {
	db := testDB(t)
	alice := newAgent(t, db, "alice")
	newAgent(t, db, "bob")
	carol := newAgent(t, db, "carol")

	req, err := SendFriendRequest(db, alice, "bob")
	require.NoError(t, err)

	assert.ErrorIs(t, DeclineFriendRequest(db, carol, req.ID), ErrForbidden)
}

func TestRemoveFriend(t *testing.T) {
	db := testDB(t)
	alice := newAgent(t, db, "alice")
	bob := newAgent(t, db, "bob")
	befriend(t, db, alice, bob)

	require.NoError(t, RemoveFriend(db, alice, "bob"))

	friends, err := AreFriends(db, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, friends)

	// Karma walks back on both sides.
	require.NoError(t, db.First(alice, alice.ID).Error)
	require.NoError(t, db.First(bob, bob.ID).Error)
	assert.Equal(t, 0, alice.Karma)
	assert.Equal(t, 0, bob.Karma)
}

func TestRemoveFriendNotFriends(t *testing.T) {
	db := testDB(t)
	alice := newAgent(t, db, "alice")
	newAgent(t, db, "bob")

	assert.ErrorIs(t, RemoveFriend(db, alice, "bob"), ErrNotFriends)
	assert.ErrorIs(t, RemoveFriend(db, alice, "nobody"), ErrNotFound)
}

func TestRemoveFriendPrunesTopFriends(t *testing.T) {
	db := testDB(t)
	alice := newAgent(t, db, "alice")
	bob := newAgent(t, db, "bob")
	carol := newAgent(t, db, "carol")
	befriend(t, db, alice, bob)
	befriend(t, db, alice, carol)

	_, err := SetTopFriends(db, alice, []TopFriendEntry{
		{Handle: "bob", Position: 1},
		{Handle: "carol", Position: 2},
	})
	require.NoError(t, err)

	// Bob also ranks alice.
	_, err = SetTopFriends(db, bob, []TopFriendEntry{{Handle: "alice", Position: 1}})
	require.NoError(t, err)

	require.NoError(t, RemoveFriend(db, alice, "bob"))

	// Alice keeps carol but loses bob; bob's slot for alice is gone too.
	entries, err := TopFriends(db, alice.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, carol.ID, entries[0].FriendID)

	entries, err = TopFriends(db, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFriendRequestPairNormalized(t *testing.T) {
	db := testDB(t)
	alice := newAgent(t, db, "alice")
	bob := newAgent(t, db, "bob")
	carol := newAgent(t, db, "carol")

	forward := models.FriendRequest{FromAgentID: alice.ID, ToAgentID: bob.ID}
	require.NoError(t, db.Create(&forward).Error)
	reverse := models.FriendRequest{FromAgentID: carol.ID, ToAgentID: alice.ID}
	require.NoError(t, db.Create(&reverse).Error)

	assert.Equal(t, alice.ID, forward.PairMin)
	assert.Equal(t, bob.ID, forward.PairMax)
	assert.Equal(t, alice.ID, reverse.PairMin)
	assert.Equal(t, carol.ID, reverse.PairMax)
}

func TestFriendRequestPairIndexBlocksReverseInsert(t *testing.T) {
	// Two sends racing from opposite directions can both pass the pending
	// count. The normalized pair index must stop the second insert itself.
	db := testDB(t)
	alice := newAgent(t, db, "alice")
	bob := newAgent(t, db, "bob")

	require.NoError(t, db.Create(&models.FriendRequest{FromAgentID: alice.ID, ToAgentID: bob.ID}).Error)

	err := db.Create(&models.FriendRequest{FromAgentID: bob.ID, ToAgentID: alice.ID}).Error
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

	err = db.Create(&models.FriendRequest{FromAgentID: alice.ID, ToAgentID: bob.ID}).Error
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
}
