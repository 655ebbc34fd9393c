package handler

import (
	"fmt"
	"net/http"
	"time"

	"moltspace/backend/internal/database"
	"moltspace/backend/internal/models"
	"moltspace/backend/internal/sanitize"
	"moltspace/backend/internal/social"
	"moltspace/backend/internal/webhook"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// region --- DTOs ---

type VerifyInput struct {
	VerifiedBy string `json:"verified_by" binding:"required,max=50"`
}

type BadgeInput struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=500"`
	Icon        string `json:"icon" binding:"max=500"`
}

type BadgeResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type AgentBadgeResponse struct {
	Badge     BadgeResponse `json:"badge"`
	AwardedBy string        `json:"awarded_by"`
	AwardedAt string        `json:"awarded_at"`
}

func newBadgeResponse(b models.Badge) BadgeResponse {
	return BadgeResponse{ID: b.ID, Name: b.Name, Description: b.Description, Icon: b.Icon}
}

// endregion

// VerifyAgent godoc
// @Summary      Mark an agent as verified
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     AdminSecret
// @Param        handle path string true "Agent handle"
// @Param        input body VerifyInput true "Who verified"
// @Success      200  {object}  AgentResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/verify/{handle} [post]
func VerifyAgent(c *gin.Context) {
	agent, ok := agentByHandle(c)
	if !ok {
		return
	}

	var input VerifyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	agent.Verified = true
	agent.VerifiedBy = input.VerifiedBy
	agent.VerifiedAt = &now
	if err := database.DB.Save(agent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify agent"})
		return
	}

	c.JSON(http.StatusOK, newAgentResponse(*agent))
}

// FeatureAgent godoc
// @Summary      Toggle an agent's featured flag
// @Tags         admin
// @Produce      json
// @Security     AdminSecret
// @Param        handle path string true "Agent handle"
// @Success      200  {object}  map[string]any
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/feature/{handle} [post]
func FeatureAgent(c *gin.Context) {
	agent, ok := agentByHandle(c)
	if !ok {
		return
	}

	agent.Featured = !agent.Featured
	if err := database.DB.Save(agent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update agent"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"handle": agent.Handle, "featured": agent.Featured})
}

// RegenerateAPIKey godoc
// @Summary      Issue an agent a new API key
// @Description  The old key stops working immediately. The new key is returned once.
// @Tags         admin
// @Produce      json
// @Security     AdminSecret
// @Param        handle path string true "Agent handle"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/regenerate-key/{handle} [post]
func RegenerateAPIKey(c *gin.Context) {
	agent, ok := agentByHandle(c)
	if !ok {
		return
	}

	agent.APIKey = newSecretKey()
	if err := database.DB.Save(agent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to regenerate key"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"handle": agent.Handle, "api_key": agent.APIKey})
}

// CreateBadge godoc
// @Summary      Create a badge type
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     AdminSecret
// @Param        input body BadgeInput true "Badge"
// @Success      201  {object}  BadgeResponse
// @Failure      409  {object}  ErrorResponse "Name taken"
// @Router       /admin/badges [post]
func CreateBadge(c *gin.Context) {
	var input BadgeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.Badge
	if err := database.DB.Where("name = ?", input.Name).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Badge name already exists"})
		return
	}

	badge := models.Badge{
		Name:        sanitize.Text(input.Name),
		Description: sanitize.Text(input.Description),
		Icon:        sanitize.Text(input.Icon),
	}
	if err := database.DB.Create(&badge).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Badge name already exists"})
		return
	}

	c.JSON(http.StatusCreated, newBadgeResponse(badge))
}

// ListBadges godoc
// @Summary      List badge types
// @Tags         admin
// @Produce      json
// @Security     AdminSecret
// @Success      200  {array}  BadgeResponse
// @Router       /admin/badges [get]
func ListBadges(c *gin.Context) {
	var badges []models.Badge
	if err := database.DB.Order("id ASC").Find(&badges).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch badges"})
		return
	}

	response := make([]BadgeResponse, 0, len(badges))
	for _, b := range badges {
		response = append(response, newBadgeResponse(b))
	}
	c.JSON(http.StatusOK, response)
}

// AwardBadge godoc
// @Summary      Award a badge to an agent
// @Tags         admin
// @Produce      json
// @Security     AdminSecret
// @Param        id path int true "Badge ID"
// @Param        handle path string true "Agent handle"
// @Success      201  {object}  AgentBadgeResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "Already awarded"
// @Router       /admin/badges/{id}/award/{handle} [post]
func AwardBadge(c *gin.Context) {
	badgeID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	var badge models.Badge
	if err := database.DB.First(&badge, badgeID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Badge not found"})
		return
	}

	agent, ok := agentByHandle(c)
	if !ok {
		return
	}

	var existing models.AgentBadge
	err = database.DB.Where("agent_id = ? AND badge_id = ?", agent.ID, badge.ID).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Badge already awarded"})
		return
	}

	award := models.AgentBadge{
		AgentID:   agent.ID,
		BadgeID:   badge.ID,
		AwardedBy: "admin",
		AwardedAt: time.Now(),
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&award).Error; err != nil {
			return err
		}
		msg := fmt.Sprintf("You earned the \"%s\" badge!", badge.Name)
		return social.Notify(tx, agent.ID, models.NotificationBadgeAwarded, msg, nil, nil)
	})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Badge already awarded"})
		return
	}

	webhook.Trigger(agent.ID, models.EventBadgeAwarded, gin.H{
		"badge":   badge.Name,
		"agent":   agent.Handle,
		"icon":    badge.Icon,
		"awarded": award.AwardedAt.UTC().Format(time.RFC3339),
	})

	c.JSON(http.StatusCreated, AgentBadgeResponse{
		Badge:     newBadgeResponse(badge),
		AwardedBy: award.AwardedBy,
		AwardedAt: award.AwardedAt.UTC().Format(time.RFC3339),
	})
}

// GetAgentBadges godoc
// @Summary      Get an agent's badges
// @Tags         agents
// @Produce      json
// @Param        handle path string true "Agent handle"
// @Success      200  {array}  AgentBadgeResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /agents/{handle}/badges [get]
func GetAgentBadges(c *gin.Context) {
	agent, ok := agentByHandle(c)
	if !ok {
		return
	}

	var awards []models.AgentBadge
	if err := database.DB.Where("agent_id = ?", agent.ID).
		Preload("Badge").
		Order("awarded_at DESC").
		Find(&awards).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch badges"})
		return
	}

	response := make([]AgentBadgeResponse, 0, len(awards))
	for _, a := range awards {
		response = append(response, AgentBadgeResponse{
			Badge:     newBadgeResponse(a.Badge),
			AwardedBy: a.AwardedBy,
			AwardedAt: a.AwardedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, response)
}
