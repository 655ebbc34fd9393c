package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"moltspace/backend/internal/database"
	"moltspace/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createGroup(t *testing.T, router *gin.Engine, key, name string, private bool) uint {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/api/groups", key, gin.H{
		"name":    name,
		"private": private,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp GroupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ID
}

func TestCreateGroup(t *testing.T) {
	router := setupRouter(t)
	_, key := registerAgent(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/api/groups", key, gin.H{"name": "Crab Rave"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp GroupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Owner)
	assert.EqualValues(t, 1, resp.MemberCount)

	// Duplicate name.
	w = doJSON(router, http.MethodPost, "/api/groups", key, gin.H{"name": "Crab Rave"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestJoinOpenGroup(t *testing.T) {
	router := setupRouter(t)
	_, aliceKey := registerAgent(t, router, "alice")
	_, bobKey := registerAgent(t, router, "bob")
	groupID := createGroup(t, router, aliceKey, "Open Club", false)

	w := doJSON(router, http.MethodPost, fmt.Sprintf("/api/groups/%d/join", groupID), bobKey, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Joining again conflicts.
	w = doJSON(router, http.MethodPost, fmt.Sprintf("/api/groups/%d/join", groupID), bobKey, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(router, http.MethodGet, fmt.Sprintf("/api/groups/%d", groupID), "", nil)
	var resp GroupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp.MemberCount)
}

func TestJoinPrivateGroup(t *testing.T) {
	router := setupRouter(t)
	alice, aliceKey := registerAgent(t, router, "alice")
	_, bobKey := registerAgent(t, router, "bob")
	groupID := createGroup(t, router, aliceKey, "Secret Society", true)

	// Join request goes pending and notifies the owner.
	w := doJSON(router, http.MethodPost, fmt.Sprintf("/api/groups/%d/join", groupID), bobKey, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "pending", jsonField(t, w, "status"))

	var notifCount int64
	require.NoError(t, database.DB.Model(&models.Notification{}).
		Where("agent_id = ? AND type = ?", alice.ID, models.NotificationGroupJoinRequest).
		Count(&notifCount).Error)
	assert.EqualValues(t, 1, notifCount)

	// A second request is a conflict.
	w = doJSON(router, http.MethodPost, fmt.Sprintf("/api/groups/%d/join", groupID), bobKey, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Only the owner can see pending requests.
	w = doJSON(router, http.MethodGet, fmt.Sprintf("/api/groups/%d/requests", groupID), bobKey, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(router, http.MethodGet, fmt.Sprintf("/api/groups/%d/requests", groupID), aliceKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var requests []GroupJoinRequestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &requests))
	require.Len(t, requests, 1)

	// Approve; bob becomes a member and is notified.
	w = doJSON(router, http.MethodPost,
		fmt.Sprintf("/api/groups/%d/requests/%d/approve", groupID, requests[0].ID), aliceKey, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(router, http.MethodGet, fmt.Sprintf("/api/groups/%d", groupID), "", nil)
	var group GroupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &group))
	assert.EqualValues(t, 2, group.MemberCount)

	// Approving the consumed request again is a 404.
	w = doJSON(router, http.MethodPost,
		fmt.Sprintf("/api/groups/%d/requests/%d/approve", groupID, requests[0].ID), aliceKey, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGroupPostsMembersOnly(t *testing.T) {
	router := setupRouter(t)
	_, aliceKey := registerAgent(t, router, "alice")
	_, bobKey := registerAgent(t, router, "bob")
	groupID := createGroup(t, router, aliceKey, "Posters", false)

	// Non-member cannot post.
	w := doJSON(router, http.MethodPost, fmt.Sprintf("/api/groups/%d/posts", groupID), bobKey,
		gin.H{"content": "let me in"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Members can.
	w = doJSON(router, http.MethodPost, fmt.Sprintf("/api/groups/%d/posts", groupID), aliceKey,
		gin.H{"content": "welcome all"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Reads are public.
	w = doJSON(router, http.MethodGet, fmt.Sprintf("/api/groups/%d/posts", groupID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var posts []GroupPostResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "alice", posts[0].Author.Handle)
}

func TestLeaveGroup(t *testing.T) {
	router := setupRouter(t)
	_, aliceKey := registerAgent(t, router, "alice")
	_, bobKey := registerAgent(t, router, "bob")
	groupID := createGroup(t, router, aliceKey, "Leavers", false)

	// The owner cannot leave.
	w := doJSON(router, http.MethodPost, fmt.Sprintf("/api/groups/%d/leave", groupID), aliceKey, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Non-members get a 404.
	w = doJSON(router, http.MethodPost, fmt.Sprintf("/api/groups/%d/leave", groupID), bobKey, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Join, leave, rejoin: the unique pair index must not trap the rejoin.
	w = doJSON(router, http.MethodPost, fmt.Sprintf("/api/groups/%d/join", groupID), bobKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(router, http.MethodPost, fmt.Sprintf("/api/groups/%d/leave", groupID), bobKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(router, http.MethodPost, fmt.Sprintf("/api/groups/%d/join", groupID), bobKey, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestListGroupsMemberCounts(t *testing.T) {
	router := setupRouter(t)
	_, aliceKey := registerAgent(t, router, "alice")
	_, bobKey := registerAgent(t, router, "bob")
	_, carolKey := registerAgent(t, router, "carol")

	crowded := createGroup(t, router, aliceKey, "Crowded", false)
	quiet := createGroup(t, router, aliceKey, "Quiet", false)
	empty := createGroup(t, router, bobKey, "Solo", false)

	w := doJSON(router, http.MethodPost, fmt.Sprintf("/api/groups/%d/join", crowded), bobKey, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(router, http.MethodPost, fmt.Sprintf("/api/groups/%d/join", crowded), carolKey, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(router, http.MethodGet, "/api/groups?limit=10", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp PaginatedResponse[GroupResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 3)

	byID := make(map[uint]GroupResponse, len(resp.Data))
	for _, g := range resp.Data {
		byID[g.ID] = g
	}
	assert.EqualValues(t, 3, byID[crowded].MemberCount)
	assert.EqualValues(t, 1, byID[quiet].MemberCount)
	assert.EqualValues(t, 1, byID[empty].MemberCount)
}
