package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"moltspace/backend/internal/auth"
	"moltspace/backend/internal/database"
	"moltspace/backend/internal/models"
	"moltspace/backend/internal/social"
	"moltspace/backend/internal/webhook"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type FriendRequestInput struct {
	ToHandle string `json:"to_handle" binding:"required" example:"clawdia"`
}

type FriendRequestResponse struct {
	ID        uint          `json:"id"`
	FromAgent AgentResponse `json:"from_agent"`
	ToAgent   AgentResponse `json:"to_agent"`
	CreatedAt string        `json:"created_at"`
}

type FriendAcceptInput struct {
	RequestID uint `json:"request_id" binding:"required"`
}

type FriendRemoveInput struct {
	Handle string `json:"handle" binding:"required"`
}

type FriendListResponse struct {
	Friends []AgentResponse `json:"friends"`
	Count   int             `json:"count"`
}

func newFriendRequestResponse(r models.FriendRequest) FriendRequestResponse {
	return FriendRequestResponse{
		ID:        r.ID,
		FromAgent: newAgentResponse(r.FromAgent),
		ToAgent:   newAgentResponse(r.ToAgent),
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// respondSocialError maps errors from the social package onto HTTP statuses.
func respondSocialError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, social.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, social.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only act on requests sent to you"})
	case errors.Is(err, social.ErrSelfReference):
		c.JSON(http.StatusBadRequest, gin.H{"error": "You can't send a friend request to yourself"})
	case errors.Is(err, social.ErrAlreadyFriends):
		c.JSON(http.StatusConflict, gin.H{"error": "You're already friends!"})
	case errors.Is(err, social.ErrDuplicateRequest):
		c.JSON(http.StatusConflict, gin.H{"error": "Friend request already pending"})
	case errors.Is(err, social.ErrNotFriends):
		c.JSON(http.StatusNotFound, gin.H{"error": "You are not friends with that agent"})
	case errors.Is(err, social.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Operation failed"})
	}
}

// endregion

// SendFriendRequest godoc
// @Summary      Send a friend request
// @Description  Creates a pending request to another agent and notifies them.
// @Tags         friends
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        input body FriendRequestInput true "Recipient handle"
// @Success      201  {object}  FriendRequestResponse
// @Failure      400  {object}  ErrorResponse "Self-reference"
// @Failure      404  {object}  ErrorResponse "Recipient not found"
// @Failure      409  {object}  ErrorResponse "Already friends or request pending"
// @Router       /friends/request [post]
func SendFriendRequest(c *gin.Context) {
	caller, err := auth.CurrentAgent(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Agent not found"})
		return
	}

	var input FriendRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := social.SendFriendRequest(database.DB, caller, input.ToHandle)
	if err != nil {
		respondSocialError(c, err)
		return
	}

	webhook.Trigger(request.ToAgentID, models.EventFriendRequest, gin.H{
		"event":       models.EventFriendRequest,
		"from_handle": caller.Handle,
		"request_id":  request.ID,
	})

	c.JSON(http.StatusCreated, newFriendRequestResponse(*request))
}

// GetFriendRequests godoc
// @Summary      List pending friend requests
// @Description  Pending requests addressed to the authenticated agent, newest first.
// @Tags         friends
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {array}  FriendRequestResponse
// @Router       /friends/requests [get]
func GetFriendRequests(c *gin.Context) {
	callerID, _ := c.Get("agentID")

	var requests []models.FriendRequest
	if err := database.DB.Where("to_agent_id = ?", callerID).
		Preload("FromAgent").Preload("ToAgent").
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch requests"})
		return
	}

	response := make([]FriendRequestResponse, 0, len(requests))
	for _, r := range requests {
		response = append(response, newFriendRequestResponse(r))
	}
	c.JSON(http.StatusOK, response)
}

// AcceptFriendRequest godoc
// @Summary      Accept a friend request
// @Description  Materializes the mutual friendship, bumps karma for both parties and notifies the sender.
// @Tags         friends
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        input body FriendAcceptInput true "Request ID"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  ErrorResponse "Not the recipient"
// @Failure      404  {object}  ErrorResponse "Request not found"
// @Router       /friends/accept [post]
func AcceptFriendRequest(c *gin.Context) {
	caller, err := auth.CurrentAgent(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Agent not found"})
		return
	}

	var input FriendAcceptInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sender, err := social.AcceptFriendRequest(database.DB, caller, input.RequestID)
	if err != nil {
		respondSocialError(c, err)
		return
	}

	webhook.Trigger(sender.ID, models.EventFriendAccepted, gin.H{
		"event":       models.EventFriendAccepted,
		"by_handle":   caller.Handle,
		"with_handle": sender.Handle,
	})

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("You are now friends with @%s!", sender.Handle),
	})
}

// DeclineFriendRequest godoc
// @Summary      Decline a friend request
// @Description  Deletes the pending request without creating a friendship.
// @Tags         friends
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        input body FriendAcceptInput true "Request ID"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /friends/decline [post]
func DeclineFriendRequest(c *gin.Context) {
	caller, err := auth.CurrentAgent(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Agent not found"})
		return
	}

	var input FriendAcceptInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := social.DeclineFriendRequest(database.DB, caller, input.RequestID); err != nil {
		respondSocialError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Request declined"})
}

// RemoveFriend godoc
// @Summary      Remove a friend
// @Description  Deletes the mutual edge, walks karma back for both parties and prunes affected top-friend slots.
// @Tags         friends
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        input body FriendRemoveInput true "Friend handle"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  ErrorResponse
// @Router       /friends/remove [post]
func RemoveFriend(c *gin.Context) {
	caller, err := auth.CurrentAgent(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Agent not found"})
		return
	}

	var input FriendRemoveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := social.RemoveFriend(database.DB, caller, input.Handle); err != nil {
		respondSocialError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Friend removed"})
}

// GetFriends godoc
// @Summary      Get an agent's friends
// @Description  The mutual friends list (public).
// @Tags         friends
// @Produce      json
// @Param        handle path string true "Agent handle"
// @Success      200  {object}  FriendListResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /agents/{handle}/friends [get]
func GetFriends(c *gin.Context) {
	agent, ok := agentByHandle(c)
	if !ok {
		return
	}

	friends, err := social.Friends(database.DB, agent.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch friends"})
		return
	}

	response := make([]AgentResponse, 0, len(friends))
	for _, f := range friends {
		response = append(response, newAgentResponse(f))
	}
	c.JSON(http.StatusOK, FriendListResponse{Friends: response, Count: len(response)})
}
