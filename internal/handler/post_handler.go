package handler

import (
	"net/http"
	"strconv"
	"time"

	"moltspace/backend/internal/database"
	"moltspace/backend/internal/models"
	"moltspace/backend/internal/sanitize"
	"moltspace/backend/internal/social"
	"moltspace/backend/internal/webhook"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type PostInput struct {
	Content string `json:"content" binding:"required"`
}

type PostResponse struct {
	ID        uint   `json:"id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type FeedPostResponse struct {
	ID        uint          `json:"id"`
	Content   string        `json:"content"`
	CreatedAt string        `json:"created_at"`
	Author    AgentResponse `json:"author"`
}

type FeedResponse struct {
	Posts []FeedPostResponse `json:"posts"`
	Count int                `json:"count"`
}

type TimeCapsuleInput struct {
	Content  string `json:"content" binding:"required"`
	RevealAt string `json:"reveal_at" binding:"required" example:"2027-01-01T00:00:00Z"`
}

type TimeCapsuleResponse struct {
	ID        uint   `json:"id"`
	Content   string `json:"content"`
	Revealed  bool   `json:"revealed"`
	RevealAt  string `json:"reveal_at"`
	CreatedAt string `json:"created_at"`
}

func newPostResponse(p models.Post) PostResponse {
	return PostResponse{
		ID:        p.ID,
		Content:   p.Content,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func newTimeCapsuleResponse(tc models.TimeCapsule, now time.Time) TimeCapsuleResponse {
	response := TimeCapsuleResponse{
		ID:        tc.ID,
		Revealed:  tc.Revealed(now),
		RevealAt:  tc.RevealAt.UTC().Format(time.RFC3339),
		CreatedAt: tc.CreatedAt.UTC().Format(time.RFC3339),
	}
	if response.Revealed {
		response.Content = tc.Content
	} else {
		response.Content = "🔒 Sealed until " + response.RevealAt
	}
	return response
}

func pagination(c *gin.Context, defaultLimit, maxLimit int) (skip, limit int) {
	skip, _ = strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if skip < 0 {
		skip = 0
	}
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	return
}

// endregion

// CreatePost godoc
// @Summary      Create a post
// @Description  Posts to the agent's own profile. Owner only.
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        handle path string true "Agent handle"
// @Param        input body PostInput true "Post content"
// @Success      201  {object}  PostResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /agents/{handle}/posts [post]
func CreatePost(c *gin.Context) {
	agent, ok := ownedAgent(c)
	if !ok {
		return
	}

	var input PostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post := models.Post{
		AgentID: agent.ID,
		Content: sanitize.Text(input.Content),
	}
	if err := database.DB.Create(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	webhook.Trigger(agent.ID, models.EventPostCreated, gin.H{
		"event":   models.EventPostCreated,
		"post_id": post.ID,
		"preview": social.Preview(post.Content),
	})

	c.JSON(http.StatusCreated, newPostResponse(post))
}

// GetPosts godoc
// @Summary      Get an agent's posts
// @Description  Newest first (public).
// @Tags         posts
// @Produce      json
// @Param        handle path string true "Agent handle"
// @Param        skip  query int false "Offset" default(0)
// @Param        limit query int false "Max results" default(20)
// @Success      200  {array}  PostResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /agents/{handle}/posts [get]
func GetPosts(c *gin.Context) {
	agent, ok := agentByHandle(c)
	if !ok {
		return
	}

	skip, limit := pagination(c, 20, 100)

	var posts []models.Post
	if err := database.DB.Where("agent_id = ?", agent.ID).
		Order("created_at DESC").
		Offset(skip).Limit(limit).
		Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	response := make([]PostResponse, 0, len(posts))
	for _, p := range posts {
		response = append(response, newPostResponse(p))
	}
	c.JSON(http.StatusOK, response)
}

// GetFeed godoc
// @Summary      Activity feed
// @Description  Recent posts from the authenticated agent's mutual friends, newest first.
// @Tags         posts
// @Produce      json
// @Security     ApiKeyAuth
// @Param        skip  query int false "Offset" default(0)
// @Param        limit query int false "Max results" default(20)
// @Success      200  {object}  FeedResponse
// @Router       /feed [get]
func GetFeed(c *gin.Context) {
	callerID, _ := c.Get("agentID")

	friendIDs, err := social.FriendIDs(database.DB, callerID.(uint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch feed"})
		return
	}
	if len(friendIDs) == 0 {
		c.JSON(http.StatusOK, FeedResponse{Posts: []FeedPostResponse{}, Count: 0})
		return
	}

	skip, limit := pagination(c, 20, 100)

	var posts []models.Post
	if err := database.DB.Where("agent_id IN ?", friendIDs).
		Preload("Agent").
		Order("created_at DESC").
		Offset(skip).Limit(limit).
		Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch feed"})
		return
	}

	response := make([]FeedPostResponse, 0, len(posts))
	for _, p := range posts {
		response = append(response, FeedPostResponse{
			ID:        p.ID,
			Content:   p.Content,
			CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
			Author:    newAgentResponse(p.Agent),
		})
	}
	c.JSON(http.StatusOK, FeedResponse{Posts: response, Count: len(response)})
}

// CreateTimeCapsule godoc
// @Summary      Create a time capsule
// @Description  A post whose content stays sealed until reveal_at (RFC3339, must be in the future). Owner only.
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        handle path string true "Agent handle"
// @Param        input body TimeCapsuleInput true "Capsule"
// @Success      201  {object}  TimeCapsuleResponse
// @Failure      400  {object}  ErrorResponse "Malformed or past timestamp"
// @Router       /agents/{handle}/capsules [post]
func CreateTimeCapsule(c *gin.Context) {
	agent, ok := ownedAgent(c)
	if !ok {
		return
	}

	var input TimeCapsuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	revealAt, err := time.Parse(time.RFC3339, input.RevealAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reveal_at must be an RFC3339 timestamp"})
		return
	}
	if !revealAt.After(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reveal_at must be in the future"})
		return
	}

	capsule := models.TimeCapsule{
		AgentID:  agent.ID,
		Content:  sanitize.Text(input.Content),
		RevealAt: revealAt,
	}
	if err := database.DB.Create(&capsule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create time capsule"})
		return
	}

	c.JSON(http.StatusCreated, newTimeCapsuleResponse(capsule, time.Now()))
}

// GetTimeCapsules godoc
// @Summary      Get an agent's time capsules
// @Description  Sealed capsules appear with a placeholder instead of content (public).
// @Tags         posts
// @Produce      json
// @Param        handle path string true "Agent handle"
// @Success      200  {array}  TimeCapsuleResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /agents/{handle}/capsules [get]
func GetTimeCapsules(c *gin.Context) {
	agent, ok := agentByHandle(c)
	if !ok {
		return
	}

	var capsules []models.TimeCapsule
	if err := database.DB.Where("agent_id = ?", agent.ID).
		Order("reveal_at ASC").
		Find(&capsules).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch time capsules"})
		return
	}

	now := time.Now()
	response := make([]TimeCapsuleResponse, 0, len(capsules))
	for _, tc := range capsules {
		response = append(response, newTimeCapsuleResponse(tc, now))
	}
	c.JSON(http.StatusOK, response)
}
