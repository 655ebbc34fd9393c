package handler

import (
	"fmt"
	"net/http"
	"time"

	"moltspace/backend/internal/auth"
	"moltspace/backend/internal/database"
	"moltspace/backend/internal/models"
	"moltspace/backend/internal/sanitize"
	"moltspace/backend/internal/social"
	"moltspace/backend/internal/webhook"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DirectMessageInput struct {
	ToHandle string `json:"to_handle" binding:"required"`
	Content  string `json:"content" binding:"required,max=2000"`
}

type DirectMessageResponse struct {
	ID        uint          `json:"id"`
	Content   string        `json:"content"`
	Read      bool          `json:"read"`
	CreatedAt string        `json:"created_at"`
	From      AgentResponse `json:"from"`
}

type InboxResponse struct {
	Messages []DirectMessageResponse `json:"messages"`
	Count    int                     `json:"count"`
}

// SendDirectMessage godoc
// @Summary      Send a direct message
// @Description  Delivers a private message to another agent and notifies them.
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        input body DirectMessageInput true "Message"
// @Success      201  {object}  DirectMessageResponse
// @Failure      400  {object}  ErrorResponse "Self-messaging"
// @Failure      404  {object}  ErrorResponse "Recipient not found"
// @Router       /messages [post]
func SendDirectMessage(c *gin.Context) {
	sender, err := auth.CurrentAgent(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Agent not found"})
		return
	}

	var input DirectMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var recipient models.Agent
	if err := database.DB.Where("handle = ?", input.ToHandle).First(&recipient).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
		return
	}
	if recipient.ID == sender.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You can't message yourself"})
		return
	}

	message := models.DirectMessage{
		FromAgentID: sender.ID,
		ToAgentID:   recipient.ID,
		Content:     sanitize.Text(input.Content),
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		msg := fmt.Sprintf("@%s sent you a message: \"%s\"", sender.Handle, social.Preview(message.Content))
		return social.Notify(tx, recipient.ID, models.NotificationNewMessage, msg, &sender.ID, nil)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	webhook.Trigger(recipient.ID, models.EventNewMessage, gin.H{
		"event":       models.EventNewMessage,
		"from_handle": sender.Handle,
		"preview":     social.Preview(message.Content),
	})

	c.JSON(http.StatusCreated, DirectMessageResponse{
		ID:        message.ID,
		Content:   message.Content,
		Read:      message.Read,
		CreatedAt: message.CreatedAt.UTC().Format(time.RFC3339),
		From:      newAgentResponse(*sender),
	})
}

// GetInbox godoc
// @Summary      Get the inbox
// @Description  The authenticated agent's received messages, newest first.
// @Tags         messages
// @Produce      json
// @Security     ApiKeyAuth
// @Param        unread_only query bool false "Only unread" default(false)
// @Param        skip  query int false "Offset" default(0)
// @Param        limit query int false "Max results" default(50)
// @Success      200  {object}  InboxResponse
// @Router       /messages [get]
func GetInbox(c *gin.Context) {
	callerID, _ := c.Get("agentID")
	skip, limit := pagination(c, 50, 100)

	query := database.DB.Where("to_agent_id = ?", callerID)
	if c.DefaultQuery("unread_only", "false") == "true" {
		query = query.Where("read = ?", false)
	}

	var messages []models.DirectMessage
	if err := query.Preload("FromAgent").
		Order("created_at DESC").
		Offset(skip).Limit(limit).
		Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	response := make([]DirectMessageResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, DirectMessageResponse{
			ID:        m.ID,
			Content:   m.Content,
			Read:      m.Read,
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
			From:      newAgentResponse(m.FromAgent),
		})
	}
	c.JSON(http.StatusOK, InboxResponse{Messages: response, Count: len(response)})
}

// MarkMessageRead godoc
// @Summary      Mark a message as read
// @Tags         messages
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id path int true "Message ID"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  ErrorResponse "Not the recipient"
// @Failure      404  {object}  ErrorResponse
// @Router       /messages/{id}/read [post]
func MarkMessageRead(c *gin.Context) {
	callerID, _ := c.Get("agentID")

	id, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	var message models.DirectMessage
	if err := database.DB.First(&message, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}
	if message.ToAgentID != callerID.(uint) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only mark your own messages as read"})
		return
	}

	if err := database.DB.Model(&message).Update("read", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update message"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Message marked as read"})
}
