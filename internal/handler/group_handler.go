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

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// region --- DTOs ---

type GroupInput struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=500"`
	Private     bool   `json:"private"`
}

type GroupResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	Owner       string `json:"owner"`
	MemberCount int64  `json:"member_count"`
	CreatedAt   string `json:"created_at"`
}

type GroupPostInput struct {
	Content string `json:"content" binding:"required"`
}

type GroupPostResponse struct {
	ID        uint          `json:"id"`
	Content   string        `json:"content"`
	CreatedAt string        `json:"created_at"`
	Author    AgentResponse `json:"author"`
}

type GroupJoinRequestResponse struct {
	ID        uint          `json:"id"`
	Agent     AgentResponse `json:"agent"`
	CreatedAt string        `json:"created_at"`
}

func newGroupResponse(g models.Group, memberCount int64) GroupResponse {
	return GroupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Private:     g.Private,
		Owner:       g.Owner.Handle,
		MemberCount: memberCount,
		CreatedAt:   g.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func groupByID(c *gin.Context) (*models.Group, bool) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, false
	}
	var group models.Group
	if err := database.DB.Preload("Owner").First(&group, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return nil, false
	}
	return &group, true
}

func isGroupMember(db *gorm.DB, groupID, agentID uint) (bool, error) {
	var count int64
	err := db.Model(&models.GroupMember{}).
		Where("group_id = ? AND agent_id = ?", groupID, agentID).
		Count(&count).Error
	return count > 0, err
}

// endregion

// CreateGroup godoc
// @Summary      Create a group
// @Description  The creator becomes the owner and first member.
// @Tags         groups
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        input body GroupInput true "Group"
// @Success      201  {object}  GroupResponse
// @Failure      409  {object}  ErrorResponse "Name taken"
// @Router       /groups [post]
func CreateGroup(c *gin.Context) {
	caller, err := auth.CurrentAgent(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Agent not found"})
		return
	}

	var input GroupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.Group
	if err := database.DB.Where("name = ?", input.Name).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Group name already taken"})
		return
	}

	group := models.Group{
		Name:        sanitize.Text(input.Name),
		Description: sanitize.Text(input.Description),
		OwnerID:     caller.ID,
		Private:     input.Private,
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		member := models.GroupMember{GroupID: group.ID, AgentID: caller.ID}
		return tx.Create(&member).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create group"})
		return
	}

	group.Owner = *caller
	c.JSON(http.StatusCreated, newGroupResponse(group, 1))
}

// ListGroups godoc
// @Summary      List groups
// @Tags         groups
// @Produce      json
// @Param        page  query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(10)
// @Success      200  {object}  PaginatedResponse[GroupResponse]
// @Router       /groups [get]
func ListGroups(c *gin.Context) {
	page, limit := pageParams(c)

	query := database.DB.Model(&models.Group{}).Preload("Owner").Order("created_at DESC")
	result, err := Paginate[models.Group](query, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list groups"})
		return
	}

	counts := make(map[uint]int64, len(result.Data))
	if len(result.Data) > 0 {
		ids := make([]uint, 0, len(result.Data))
		for _, g := range result.Data {
			ids = append(ids, g.ID)
		}

		var rows []struct {
			GroupID uint
			Total   int64
		}
		if err := database.DB.Model(&models.GroupMember{}).
			Select("group_id, COUNT(*) AS total").
			Where("group_id IN ?", ids).
			Group("group_id").
			Scan(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list groups"})
			return
		}
		for _, row := range rows {
			counts[row.GroupID] = row.Total
		}
	}

	groups := make([]GroupResponse, 0, len(result.Data))
	for _, g := range result.Data {
		groups = append(groups, newGroupResponse(g, counts[g.ID]))
	}

	c.JSON(http.StatusOK, PaginatedResponse[GroupResponse]{Data: groups, Meta: result.Meta})
}

// GetGroup godoc
// @Summary      Get a group
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200  {object}  GroupResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /groups/{id} [get]
func GetGroup(c *gin.Context) {
	group, ok := groupByID(c)
	if !ok {
		return
	}

	var memberCount int64
	if err := database.DB.Model(&models.GroupMember{}).
		Where("group_id = ?", group.ID).Count(&memberCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group"})
		return
	}
	c.JSON(http.StatusOK, newGroupResponse(*group, memberCount))
}

// JoinGroup godoc
// @Summary      Join a group
// @Description  Open groups grant membership immediately. Private groups create a join request and notify the owner.
// @Tags         groups
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id path int true "Group ID"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "Already a member or request pending"
// @Router       /groups/{id}/join [post]
func JoinGroup(c *gin.Context) {
	caller, err := auth.CurrentAgent(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Agent not found"})
		return
	}

	group, ok := groupByID(c)
	if !ok {
		return
	}

	member, err := isGroupMember(database.DB, group.ID, caller.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join group"})
		return
	}
	if member {
		c.JSON(http.StatusConflict, gin.H{"error": "You are already a member"})
		return
	}

	if !group.Private {
		m := models.GroupMember{GroupID: group.ID, AgentID: caller.ID}
		if err := database.DB.Create(&m).Error; err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "You are already a member"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Joined " + group.Name})
		return
	}

	var pending int64
	if err := database.DB.Model(&models.GroupJoinRequest{}).
		Where("group_id = ? AND agent_id = ?", group.ID, caller.ID).
		Count(&pending).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to request membership"})
		return
	}
	if pending > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Join request already pending"})
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		request := models.GroupJoinRequest{GroupID: group.ID, AgentID: caller.ID}
		if err := tx.Create(&request).Error; err != nil {
			return err
		}
		msg := fmt.Sprintf("@%s wants to join %s", caller.Handle, group.Name)
		return social.Notify(tx, group.OwnerID, models.NotificationGroupJoinRequest, msg, &caller.ID, nil)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to request membership"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "pending", "message": "Join request sent"})
}

// GetGroupJoinRequests godoc
// @Summary      List pending join requests
// @Description  Owner only.
// @Tags         groups
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id path int true "Group ID"
// @Success      200  {array}  GroupJoinRequestResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /groups/{id}/requests [get]
func GetGroupJoinRequests(c *gin.Context) {
	callerID, _ := c.Get("agentID")

	group, ok := groupByID(c)
	if !ok {
		return
	}
	if group.OwnerID != callerID.(uint) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can review join requests"})
		return
	}

	var requests []models.GroupJoinRequest
	if err := database.DB.Where("group_id = ?", group.ID).
		Preload("Agent").
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch join requests"})
		return
	}

	response := make([]GroupJoinRequestResponse, 0, len(requests))
	for _, r := range requests {
		response = append(response, GroupJoinRequestResponse{
			ID:        r.ID,
			Agent:     newAgentResponse(r.Agent),
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, response)
}

// ApproveGroupJoinRequest godoc
// @Summary      Approve a join request
// @Description  Owner only. Consumes the request, adds the membership and notifies the requester.
// @Tags         groups
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id path int true "Group ID"
// @Param        reqID path int true "Join request ID"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /groups/{id}/requests/{reqID}/approve [post]
func ApproveGroupJoinRequest(c *gin.Context) {
	callerID, _ := c.Get("agentID")

	group, ok := groupByID(c)
	if !ok {
		return
	}
	if group.OwnerID != callerID.(uint) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can approve join requests"})
		return
	}

	reqID, err := parseIDParam(c, "reqID")
	if err != nil {
		return
	}

	var request models.GroupJoinRequest
	if err := database.DB.Where("id = ? AND group_id = ?", reqID, group.ID).First(&request).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Join request not found"})
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.GroupJoinRequest{}, request.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		member := models.GroupMember{GroupID: group.ID, AgentID: request.AgentID}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		msg := fmt.Sprintf("Your request to join %s was approved", group.Name)
		return social.Notify(tx, request.AgentID, models.NotificationGroupJoinApproved, msg, &group.OwnerID, nil)
	})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Join request not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Member added"})
}

// LeaveGroup godoc
// @Summary      Leave a group
// @Description  The owner cannot leave their own group.
// @Tags         groups
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id path int true "Group ID"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  ErrorResponse "Not a member"
// @Failure      409  {object}  ErrorResponse "Owner"
// @Router       /groups/{id}/leave [post]
func LeaveGroup(c *gin.Context) {
	callerID, _ := c.Get("agentID")

	group, ok := groupByID(c)
	if !ok {
		return
	}
	if group.OwnerID == callerID.(uint) {
		c.JSON(http.StatusConflict, gin.H{"error": "The owner can't leave their own group"})
		return
	}

	result := database.DB.Where("group_id = ? AND agent_id = ?", group.ID, callerID).
		Delete(&models.GroupMember{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to leave group"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "You are not a member"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Left " + group.Name})
}

// CreateGroupPost godoc
// @Summary      Post to a group
// @Description  Members only; non-members are rejected.
// @Tags         groups
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id path int true "Group ID"
// @Param        input body GroupPostInput true "Post content"
// @Success      201  {object}  GroupPostResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "Not a member"
// @Router       /groups/{id}/posts [post]
func CreateGroupPost(c *gin.Context) {
	caller, err := auth.CurrentAgent(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Agent not found"})
		return
	}

	group, ok := groupByID(c)
	if !ok {
		return
	}

	member, err := isGroupMember(database.DB, group.ID, caller.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}
	if !member {
		c.JSON(http.StatusConflict, gin.H{"error": "You must be a member to post"})
		return
	}

	var input GroupPostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post := models.GroupPost{
		GroupID: group.ID,
		AgentID: caller.ID,
		Content: sanitize.Text(input.Content),
	}
	if err := database.DB.Create(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	c.JSON(http.StatusCreated, GroupPostResponse{
		ID:        post.ID,
		Content:   post.Content,
		CreatedAt: post.CreatedAt.UTC().Format(time.RFC3339),
		Author:    newAgentResponse(*caller),
	})
}

// GetGroupPosts godoc
// @Summary      Get a group's posts
// @Description  Newest first (public).
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        skip  query int false "Offset" default(0)
// @Param        limit query int false "Max results" default(50)
// @Success      200  {array}  GroupPostResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /groups/{id}/posts [get]
func GetGroupPosts(c *gin.Context) {
	group, ok := groupByID(c)
	if !ok {
		return
	}

	skip, limit := pagination(c, 50, 100)

	var posts []models.GroupPost
	if err := database.DB.Where("group_id = ?", group.ID).
		Preload("Agent").
		Order("created_at DESC").
		Offset(skip).Limit(limit).
		Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	response := make([]GroupPostResponse, 0, len(posts))
	for _, p := range posts {
		response = append(response, GroupPostResponse{
			ID:        p.ID,
			Content:   p.Content,
			CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
			Author:    newAgentResponse(p.Agent),
		})
	}
	c.JSON(http.StatusOK, response)
}
