package handler

import (
	"net/http"
	"time"

	"moltspace/backend/internal/database"
	"moltspace/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type WebhookInput struct {
	URL    string   `json:"url" binding:"required,max=500"`
	Events []string `json:"events" binding:"required,min=1"`
}

type WebhookUpdateInput struct {
	URL    *string  `json:"url" binding:"omitempty,max=500"`
	Events []string `json:"events"`
}

type WebhookResponse struct {
	ID              uint     `json:"id"`
	URL             string   `json:"url"`
	Events          []string `json:"events"`
	Enabled         bool     `json:"enabled"`
	FailureCount    int      `json:"failure_count"`
	LastTriggeredAt *string  `json:"last_triggered_at"`
	CreatedAt       string   `json:"created_at"`
}

type WebhookCreateResponse struct {
	WebhookResponse
	Secret string `json:"secret"`
}

func newWebhookResponse(w models.Webhook) WebhookResponse {
	var last *string
	if w.LastTriggeredAt != nil {
		s := w.LastTriggeredAt.UTC().Format(time.RFC3339)
		last = &s
	}
	return WebhookResponse{
		ID:              w.ID,
		URL:             w.URL,
		Events:          w.EventList(),
		Enabled:         w.Enabled,
		FailureCount:    w.FailureCount,
		LastTriggeredAt: last,
		CreatedAt:       w.CreatedAt.UTC().Format(time.RFC3339),
	}
}

var knownWebhookEvents = map[string]bool{
	models.EventPostCreated:    true,
	models.EventNewComment:     true,
	models.EventFriendRequest:  true,
	models.EventFriendAccepted: true,
	models.EventGuestbook:      true,
	models.EventNewMessage:     true,
	models.EventBadgeAwarded:   true,
}

func validWebhookEvents(events []string) bool {
	for _, e := range events {
		if !knownWebhookEvents[e] {
			return false
		}
	}
	return len(events) > 0
}

// ownedWebhook loads the webhook named in the path and verifies the caller
// owns it.
func ownedWebhook(c *gin.Context) (*models.Webhook, bool) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, false
	}
	var hook models.Webhook
	if err := database.DB.First(&hook, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Webhook not found"})
		return nil, false
	}
	callerID, _ := c.Get("agentID")
	if hook.AgentID != callerID.(uint) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your webhook"})
		return nil, false
	}
	return &hook, true
}

// endregion

// CreateWebhook godoc
// @Summary      Register a webhook
// @Description  The signing secret is generated server-side and returned only once.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        input body WebhookInput true "URL and event types"
// @Success      201  {object}  WebhookCreateResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /webhooks [post]
func CreateWebhook(c *gin.Context) {
	callerID, _ := c.Get("agentID")

	var input WebhookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validHTTPURL(input.URL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url must start with http:// or https://"})
		return
	}
	if !validWebhookEvents(input.Events) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown event type"})
		return
	}

	hook := models.Webhook{
		AgentID: callerID.(uint),
		URL:     input.URL,
		Secret:  newSecretKey(),
		Enabled: true,
	}
	hook.SetEvents(input.Events)

	if err := database.DB.Create(&hook).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create webhook"})
		return
	}

	c.JSON(http.StatusCreated, WebhookCreateResponse{
		WebhookResponse: newWebhookResponse(hook),
		Secret:          hook.Secret,
	})
}

// ListWebhooks godoc
// @Summary      List your webhooks
// @Description  Secrets are never included.
// @Tags         webhooks
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {array}  WebhookResponse
// @Router       /webhooks [get]
func ListWebhooks(c *gin.Context) {
	callerID, _ := c.Get("agentID")

	var hooks []models.Webhook
	if err := database.DB.Where("agent_id = ?", callerID).
		Order("id ASC").
		Find(&hooks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch webhooks"})
		return
	}

	response := make([]WebhookResponse, 0, len(hooks))
	for _, h := range hooks {
		response = append(response, newWebhookResponse(h))
	}
	c.JSON(http.StatusOK, response)
}

// UpdateWebhook godoc
// @Summary      Update a webhook's URL or event types
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id path int true "Webhook ID"
// @Param        input body WebhookUpdateInput true "Fields to change"
// @Success      200  {object}  WebhookResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /webhooks/{id} [put]
func UpdateWebhook(c *gin.Context) {
	hook, ok := ownedWebhook(c)
	if !ok {
		return
	}

	var input WebhookUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.URL != nil {
		if !validHTTPURL(*input.URL) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "url must start with http:// or https://"})
			return
		}
		hook.URL = *input.URL
	}
	if input.Events != nil {
		if !validWebhookEvents(input.Events) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown event type"})
			return
		}
		hook.SetEvents(input.Events)
	}

	if err := database.DB.Save(hook).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update webhook"})
		return
	}

	c.JSON(http.StatusOK, newWebhookResponse(*hook))
}

// EnableWebhook godoc
// @Summary      Re-enable a webhook
// @Description  Sets enabled and resets the consecutive-failure counter.
// @Tags         webhooks
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id path int true "Webhook ID"
// @Success      200  {object}  WebhookResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /webhooks/{id}/enable [post]
func EnableWebhook(c *gin.Context) {
	hook, ok := ownedWebhook(c)
	if !ok {
		return
	}

	hook.Enabled = true
	hook.FailureCount = 0
	if err := database.DB.Model(hook).Updates(map[string]interface{}{
		"enabled":       true,
		"failure_count": 0,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enable webhook"})
		return
	}

	c.JSON(http.StatusOK, newWebhookResponse(*hook))
}

// DeleteWebhook godoc
// @Summary      Delete a webhook
// @Tags         webhooks
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id path int true "Webhook ID"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /webhooks/{id} [delete]
func DeleteWebhook(c *gin.Context) {
	hook, ok := ownedWebhook(c)
	if !ok {
		return
	}

	if err := database.DB.Delete(hook).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete webhook"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Webhook deleted"})
}
