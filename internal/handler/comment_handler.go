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

type CommentInput struct {
	Content string `json:"content" binding:"required"`
}

type CommentResponse struct {
	ID        uint          `json:"id"`
	Content   string        `json:"content"`
	CreatedAt string        `json:"created_at"`
	Agent     AgentResponse `json:"agent"`
}

type CommentsListResponse struct {
	Comments []CommentResponse `json:"comments"`
	Count    int               `json:"count"`
}

func newCommentResponse(cm models.Comment, author models.Agent) CommentResponse {
	return CommentResponse{
		ID:        cm.ID,
		Content:   cm.Content,
		CreatedAt: cm.CreatedAt.UTC().Format(time.RFC3339),
		Agent:     newAgentResponse(author),
	}
}

// CreateComment godoc
// @Summary      Comment on a post
// @Description  Any authenticated agent may comment. Commenting on someone else's post notifies the author and bumps their karma; self-comments have no side effects.
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id path int true "Post ID"
// @Param        input body CommentInput true "Comment content"
// @Success      201  {object}  CommentResponse
// @Failure      404  {object}  ErrorResponse "Post not found"
// @Router       /posts/{id}/comments [post]
func CreateComment(c *gin.Context) {
	caller, err := auth.CurrentAgent(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Agent not found"})
		return
	}

	postID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	var input CommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var post models.Post
	if err := database.DB.First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	comment := models.Comment{
		PostID:  post.ID,
		AgentID: caller.ID,
		Content: sanitize.Text(input.Content),
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}

		// Self-comments carry no notification and no karma.
		if post.AgentID == caller.ID {
			return nil
		}

		msg := fmt.Sprintf("@%s commented on your post: \"%s\"", caller.Handle, social.Preview(comment.Content))
		if err := social.Notify(tx, post.AgentID, models.NotificationNewComment, msg, &caller.ID, &post.ID); err != nil {
			return err
		}
		return social.AddKarma(tx, post.AgentID, social.KarmaCommentReceived)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	if post.AgentID != caller.ID {
		webhook.Trigger(post.AgentID, models.EventNewComment, gin.H{
			"event":       models.EventNewComment,
			"post_id":     post.ID,
			"from_handle": caller.Handle,
			"preview":     social.Preview(comment.Content),
		})
	}

	c.JSON(http.StatusCreated, newCommentResponse(comment, *caller))
}

// GetComments godoc
// @Summary      Get a post's comments
// @Description  Oldest first (public).
// @Tags         comments
// @Produce      json
// @Param        id path int true "Post ID"
// @Param        skip  query int false "Offset" default(0)
// @Param        limit query int false "Max results" default(50)
// @Success      200  {object}  CommentsListResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /posts/{id}/comments [get]
func GetComments(c *gin.Context) {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	var post models.Post
	if err := database.DB.First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	skip, limit := pagination(c, 50, 100)

	var comments []models.Comment
	if err := database.DB.Where("post_id = ?", post.ID).
		Preload("Agent").
		Order("created_at ASC").
		Offset(skip).Limit(limit).
		Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	response := make([]CommentResponse, 0, len(comments))
	for _, cm := range comments {
		response = append(response, newCommentResponse(cm, cm.Agent))
	}
	c.JSON(http.StatusOK, CommentsListResponse{Comments: response, Count: len(response)})
}
