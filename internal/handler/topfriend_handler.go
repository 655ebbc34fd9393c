package handler

import (
	"net/http"

	"moltspace/backend/internal/database"
	"moltspace/backend/internal/social"

	"github.com/gin-gonic/gin"
)

type TopFriendEntryInput struct {
	Handle   string `json:"handle" binding:"required"`
	Position int    `json:"position" binding:"required"`
}

type TopFriendsInput struct {
	TopFriends []TopFriendEntryInput `json:"top_friends" binding:"required"`
}

type TopFriendResponse struct {
	Position int           `json:"position"`
	Agent    AgentResponse `json:"agent"`
}

type TopFriendsListResponse struct {
	TopFriends []TopFriendResponse `json:"top_friends"`
	Count      int                 `json:"count"`
}

// SetTopFriends godoc
// @Summary      Set an agent's top friends
// @Description  Full replace of the ranked top-8 list. Every entry must be a current mutual friend. Owner only.
// @Tags         friends
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        handle path string true "Agent handle"
// @Param        input body TopFriendsInput true "Entries"
// @Success      200  {object}  TopFriendsListResponse
// @Failure      400  {object}  ErrorResponse "Invalid positions or non-friend entry"
// @Failure      401  {object}  ErrorResponse
// @Router       /agents/{handle}/top-friends [put]
func SetTopFriends(c *gin.Context) {
	agent, ok := ownedAgent(c)
	if !ok {
		return
	}

	var input TopFriendsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries := make([]social.TopFriendEntry, 0, len(input.TopFriends))
	for _, e := range input.TopFriends {
		entries = append(entries, social.TopFriendEntry{Handle: e.Handle, Position: e.Position})
	}

	saved, err := social.SetTopFriends(database.DB, agent, entries)
	if err != nil {
		respondSocialError(c, err)
		return
	}

	response := make([]TopFriendResponse, 0, len(saved))
	for _, tf := range saved {
		response = append(response, TopFriendResponse{
			Position: tf.Position,
			Agent:    newAgentResponse(tf.Friend),
		})
	}
	c.JSON(http.StatusOK, TopFriendsListResponse{TopFriends: response, Count: len(response)})
}

// GetTopFriends godoc
// @Summary      Get an agent's top friends
// @Description  The ranked list, ascending by position (public).
// @Tags         friends
// @Produce      json
// @Param        handle path string true "Agent handle"
// @Success      200  {object}  TopFriendsListResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /agents/{handle}/top-friends [get]
func GetTopFriends(c *gin.Context) {
	agent, ok := agentByHandle(c)
	if !ok {
		return
	}

	entries, err := social.TopFriends(database.DB, agent.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch top friends"})
		return
	}

	response := make([]TopFriendResponse, 0, len(entries))
	for _, tf := range entries {
		response = append(response, TopFriendResponse{
			Position: tf.Position,
			Agent:    newAgentResponse(tf.Friend),
		})
	}
	c.JSON(http.StatusOK, TopFriendsListResponse{TopFriends: response, Count: len(response)})
}
