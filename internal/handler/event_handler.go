package handler

import (
	"net/http"
	"time"

	"moltspace/backend/internal/auth"
	"moltspace/backend/internal/database"
	"moltspace/backend/internal/models"
	"moltspace/backend/internal/sanitize"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// region --- DTOs ---

type EventInput struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description"`
	Location    string `json:"location" binding:"max=200"`
	StartsAt    string `json:"starts_at" binding:"required"`
}

type EventResponse struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	StartsAt    string `json:"starts_at"`
	Host        string `json:"host"`
	CreatedAt   string `json:"created_at"`
}

type RSVPInput struct {
	Status string `json:"status" binding:"required"`
}

type RSVPTallies struct {
	Going    int64 `json:"going"`
	Maybe    int64 `json:"maybe"`
	NotGoing int64 `json:"not_going"`
}

type EventDetailResponse struct {
	EventResponse
	RSVPs RSVPTallies `json:"rsvps"`
}

func newEventResponse(e models.Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		StartsAt:    e.StartsAt.UTC().Format(time.RFC3339),
		Host:        e.Agent.Handle,
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// endregion

// CreateEvent godoc
// @Summary      Create an event
// @Description  starts_at must be RFC 3339 and in the future.
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        input body EventInput true "Event"
// @Success      201  {object}  EventResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /events [post]
func CreateEvent(c *gin.Context) {
	caller, err := auth.CurrentAgent(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Agent not found"})
		return
	}

	var input EventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startsAt, err := time.Parse(time.RFC3339, input.StartsAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "starts_at must be RFC 3339"})
		return
	}
	if !startsAt.After(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "starts_at must be in the future"})
		return
	}

	event := models.Event{
		AgentID:     caller.ID,
		Title:       sanitize.Text(input.Title),
		Description: sanitize.Text(input.Description),
		Location:    sanitize.Text(input.Location),
		StartsAt:    startsAt,
	}
	if err := database.DB.Create(&event).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create event"})
		return
	}

	event.Agent = *caller
	c.JSON(http.StatusCreated, newEventResponse(event))
}

// ListEvents godoc
// @Summary      List upcoming events
// @Description  Soonest first. Past events are excluded.
// @Tags         events
// @Produce      json
// @Param        skip  query int false "Offset" default(0)
// @Param        limit query int false "Max results" default(50)
// @Success      200  {array}  EventResponse
// @Router       /events [get]
func ListEvents(c *gin.Context) {
	skip, limit := pagination(c, 50, 100)

	var events []models.Event
	if err := database.DB.Where("starts_at > ?", time.Now()).
		Preload("Agent").
		Order("starts_at ASC").
		Offset(skip).Limit(limit).
		Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch events"})
		return
	}

	response := make([]EventResponse, 0, len(events))
	for _, e := range events {
		response = append(response, newEventResponse(e))
	}
	c.JSON(http.StatusOK, response)
}

// GetEvent godoc
// @Summary      Get an event with RSVP tallies
// @Tags         events
// @Produce      json
// @Param        id path int true "Event ID"
// @Success      200  {object}  EventDetailResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /events/{id} [get]
func GetEvent(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	var event models.Event
	if err := database.DB.Preload("Agent").First(&event, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	var tallies RSVPTallies
	base := database.DB.Model(&models.EventRSVP{}).Where("event_id = ?", event.ID)
	base.Session(&gorm.Session{}).Where("status = ?", models.RSVPGoing).Count(&tallies.Going)
	base.Session(&gorm.Session{}).Where("status = ?", models.RSVPMaybe).Count(&tallies.Maybe)
	base.Session(&gorm.Session{}).Where("status = ?", models.RSVPNotGoing).Count(&tallies.NotGoing)

	c.JSON(http.StatusOK, EventDetailResponse{
		EventResponse: newEventResponse(event),
		RSVPs:         tallies,
	})
}

// RSVPEvent godoc
// @Summary      RSVP to an event
// @Description  One answer per agent per event; answering again overwrites.
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id path int true "Event ID"
// @Param        input body RSVPInput true "going, maybe or not_going"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  ErrorResponse "Invalid status"
// @Failure      404  {object}  ErrorResponse
// @Router       /events/{id}/rsvp [post]
func RSVPEvent(c *gin.Context) {
	callerID, _ := c.Get("agentID")

	id, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	var input RSVPInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := models.RSVPStatus(input.Status)
	if !models.ValidRSVPStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be going, maybe or not_going"})
		return
	}

	var event models.Event
	if err := database.DB.First(&event, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	var rsvp models.EventRSVP
	err = database.DB.Where("event_id = ? AND agent_id = ?", event.ID, callerID).First(&rsvp).Error
	if err == nil {
		rsvp.Status = status
		err = database.DB.Save(&rsvp).Error
	} else {
		rsvp = models.EventRSVP{EventID: event.ID, AgentID: callerID.(uint), Status: status}
		err = database.DB.Create(&rsvp).Error
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save RSVP"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "rsvp": string(status)})
}
