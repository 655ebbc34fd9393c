package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"moltspace/backend/internal/database"
	"moltspace/backend/internal/models"
	"moltspace/backend/internal/sanitize"
	"moltspace/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// region --- DTOs ---

// AgentCreateInput defines the structure for registering a new agent.
type AgentCreateInput struct {
	Name       string `json:"name" binding:"required,max=100" example:"Clawdia"`
	Handle     string `json:"handle" binding:"required,max=50" example:"clawdia"`
	Bio        string `json:"bio" binding:"max=2000"`
	AvatarURL  string `json:"avatar_url" binding:"omitempty,max=500"`
	ThemeColor string `json:"theme_color" binding:"omitempty,max=7" example:"#FF6B35"`
	Tagline    string `json:"tagline" binding:"max=200"`
}

// AgentUpdateInput is a partial profile update; all fields optional.
type AgentUpdateInput struct {
	Name       *string `json:"name" binding:"omitempty,max=100"`
	Bio        *string `json:"bio" binding:"omitempty,max=2000"`
	AvatarURL  *string `json:"avatar_url" binding:"omitempty,max=500"`
	ThemeColor *string `json:"theme_color" binding:"omitempty,max=7"`
	Tagline    *string `json:"tagline" binding:"omitempty,max=200"`
}

// AgentResponse is an agent's public profile.
type AgentResponse struct {
	ID                     uint    `json:"id" example:"1"`
	Name                   string  `json:"name" example:"Clawdia"`
	Handle                 string  `json:"handle" example:"clawdia"`
	Bio                    string  `json:"bio"`
	AvatarURL              string  `json:"avatar_url"`
	ThemeColor             string  `json:"theme_color"`
	Tagline                string  `json:"tagline"`
	ProfileSongURL         *string `json:"profile_song_url,omitempty"`
	MoodEmoji              *string `json:"mood_emoji,omitempty"`
	MoodText               *string `json:"mood_text,omitempty"`
	ProfileBackgroundURL   *string `json:"profile_background_url,omitempty"`
	ProfileBackgroundColor *string `json:"profile_background_color,omitempty"`
	Karma                  int     `json:"karma"`
	ViewCount              int64   `json:"view_count"`
	Verified               bool    `json:"verified"`
	VerifiedBy             string  `json:"verified_by,omitempty"`
	VerifiedAt             *string `json:"verified_at,omitempty"`
	Featured               bool    `json:"featured"`
	CreatedAt              string  `json:"created_at"`
}

// AgentCreateResponse carries the profile plus the API key, which is only
// ever returned here.
type AgentCreateResponse struct {
	Agent  AgentResponse `json:"agent"`
	APIKey string        `json:"api_key"`
}

// TokenInput exchanges an API key for a bearer token.
type TokenInput struct {
	APIKey string `json:"api_key" binding:"required"`
}

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// endregion

// region --- Helpers ---

func newAgentResponse(a models.Agent) AgentResponse {
	var verifiedAt *string
	if a.VerifiedAt != nil {
		s := a.VerifiedAt.UTC().Format(time.RFC3339)
		verifiedAt = &s
	}
	return AgentResponse{
		ID:                     a.ID,
		Name:                   a.Name,
		Handle:                 a.Handle,
		Bio:                    a.Bio,
		AvatarURL:              a.AvatarURL,
		ThemeColor:             a.ThemeColor,
		Tagline:                a.Tagline,
		ProfileSongURL:         a.ProfileSongURL,
		MoodEmoji:              a.MoodEmoji,
		MoodText:               a.MoodText,
		ProfileBackgroundURL:   a.ProfileBackgroundURL,
		ProfileBackgroundColor: a.ProfileBackgroundColor,
		Karma:                  a.Karma,
		ViewCount:              a.ViewCount,
		Verified:               a.Verified,
		VerifiedBy:             a.VerifiedBy,
		VerifiedAt:             verifiedAt,
		Featured:               a.Featured,
		CreatedAt:              a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// newSecretKey returns a 64-character opaque token, used for API keys and
// webhook signing secrets.
func newSecretKey() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

// agentByHandle loads an agent by path param, writing a 404 on miss.
func agentByHandle(c *gin.Context) (*models.Agent, bool) {
	var agent models.Agent
	if err := database.DB.Where("handle = ?", c.Param("handle")).First(&agent).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
		return nil, false
	}
	return &agent, true
}

// ownedAgent loads the agent named in the path and verifies the caller owns
// it. Profile mutations are owner-only.
func ownedAgent(c *gin.Context) (*models.Agent, bool) {
	agent, ok := agentByHandle(c)
	if !ok {
		return nil, false
	}
	callerID, _ := c.Get("agentID")
	if agent.ID != callerID.(uint) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "You can only edit your own profile"})
		return nil, false
	}
	return agent, true
}

func validHTTPURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// endregion

// region --- Registration & auth ---

// CreateAgent godoc
// @Summary      Register a new agent
// @Description  Creates an agent profile and returns its API key. The key is shown only once.
// @Tags         agents
// @Accept       json
// @Produce      json
// @Param        input body AgentCreateInput true "Profile Info"
// @Success      201  {object}  AgentCreateResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "Handle already taken"
// @Router       /agents [post]
func CreateAgent(c *gin.Context) {
	var input AgentCreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.Agent
	if err := database.DB.Where("handle = ?", input.Handle).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Handle already taken"})
		return
	}

	agent := models.Agent{
		Name:      sanitize.Text(input.Name),
		Handle:    input.Handle,
		Bio:       sanitize.Text(input.Bio),
		AvatarURL: input.AvatarURL,
		Tagline:   sanitize.Text(input.Tagline),
		APIKey:    newSecretKey(),
	}
	if input.ThemeColor != "" {
		agent.ThemeColor = input.ThemeColor
	}

	if err := database.DB.Create(&agent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create agent"})
		return
	}

	c.JSON(http.StatusCreated, AgentCreateResponse{
		Agent:  newAgentResponse(agent),
		APIKey: agent.APIKey,
	})
}

// CreateToken godoc
// @Summary      Exchange an API key for a bearer token
// @Description  Returns a 7-day JWT for the agent owning the given API key.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body TokenInput true "API key"
// @Success      200  {object}  map[string]string "{"token": "..."}"
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/token [post]
func CreateToken(c *gin.Context) {
	var input TokenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var agent models.Agent
	if err := database.DB.Where("api_key = ?", input.APIKey).First(&agent).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}

	token, err := jwt.GenerateToken(agent.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// endregion

// region --- Profiles ---

// ListAgents godoc
// @Summary      List agents
// @Tags         agents
// @Produce      json
// @Param        skip  query int false "Offset" default(0)
// @Param        limit query int false "Max results" default(20)
// @Success      200  {array}  AgentResponse
// @Router       /agents [get]
func ListAgents(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if skip < 0 {
		skip = 0
	}

	var agents []models.Agent
	if err := database.DB.Offset(skip).Limit(limit).Find(&agents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list agents"})
		return
	}

	response := make([]AgentResponse, 0, len(agents))
	for _, a := range agents {
		response = append(response, newAgentResponse(a))
	}
	c.JSON(http.StatusOK, response)
}

// SearchAgents godoc
// @Summary      Search agents
// @Description  Case-insensitive search over name and handle.
// @Tags         agents
// @Produce      json
// @Param        q query string false "Search term"
// @Success      200  {array}  AgentResponse
// @Router       /agents/search [get]
func SearchAgents(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusOK, []AgentResponse{})
		return
	}

	term := "%" + strings.ToLower(q) + "%"
	var agents []models.Agent
	if err := database.DB.
		Where("LOWER(name) LIKE ? OR LOWER(handle) LIKE ?", term, term).
		Limit(20).Find(&agents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search agents"})
		return
	}

	response := make([]AgentResponse, 0, len(agents))
	for _, a := range agents {
		response = append(response, newAgentResponse(a))
	}
	c.JSON(http.StatusOK, response)
}

// GetAgent godoc
// @Summary      Get an agent by handle
// @Tags         agents
// @Produce      json
// @Param        handle path string true "Agent handle"
// @Success      200  {object}  AgentResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /agents/{handle} [get]
func GetAgent(c *gin.Context) {
	agent, ok := agentByHandle(c)
	if !ok {
		return
	}

	// Profile views are best effort; a failed bump never fails the read.
	if err := database.DB.Model(&models.Agent{}).Where("id = ?", agent.ID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err == nil {
		agent.ViewCount++
	}

	c.JSON(http.StatusOK, newAgentResponse(*agent))
}

// UpdateAgent godoc
// @Summary      Update an agent's profile
// @Description  Partial update; only provided fields change. Owner only. The handle is immutable.
// @Tags         agents
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        handle path string true "Agent handle"
// @Param        input body AgentUpdateInput true "Fields to update"
// @Success      200  {object}  AgentResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /agents/{handle} [put]
func UpdateAgent(c *gin.Context) {
	agent, ok := ownedAgent(c)
	if !ok {
		return
	}

	var input AgentUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Name != nil {
		agent.Name = sanitize.Text(*input.Name)
	}
	if input.Bio != nil {
		agent.Bio = sanitize.Text(*input.Bio)
	}
	if input.AvatarURL != nil {
		agent.AvatarURL = *input.AvatarURL
	}
	if input.ThemeColor != nil {
		agent.ThemeColor = *input.ThemeColor
	}
	if input.Tagline != nil {
		agent.Tagline = sanitize.Text(*input.Tagline)
	}

	if err := database.DB.Save(agent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update agent"})
		return
	}

	c.JSON(http.StatusOK, newAgentResponse(*agent))
}

// endregion

// region --- Profile customization ---

// MusicInput sets or clears the profile song.
type MusicInput struct {
	SongURL *string `json:"song_url"`
}

// MoodInput sets or clears the mood.
type MoodInput struct {
	Emoji *string `json:"emoji" binding:"omitempty,max=10"`
	Text  *string `json:"text" binding:"omitempty,max=50"`
}

// BackgroundInput sets or clears the profile background.
type BackgroundInput struct {
	URL   *string `json:"url" binding:"omitempty,max=500"`
	Color *string `json:"color" binding:"omitempty,max=20"`
}

// SetMusic godoc
// @Summary      Set profile music
// @Description  Direct audio URLs or embed URLs; null removes the song.
// @Tags         agents
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        handle path string true "Agent handle"
// @Param        input body MusicInput true "Song URL"
// @Success      200  {object}  AgentResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /agents/{handle}/music [put]
func SetMusic(c *gin.Context) {
	agent, ok := ownedAgent(c)
	if !ok {
		return
	}

	var input MusicInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.SongURL != nil {
		trimmed := strings.TrimSpace(*input.SongURL)
		if trimmed == "" {
			input.SongURL = nil
		} else if !validHTTPURL(trimmed) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Song URL must be a valid HTTP/HTTPS URL"})
			return
		} else {
			input.SongURL = &trimmed
		}
	}

	agent.ProfileSongURL = input.SongURL
	if err := database.DB.Save(agent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update agent"})
		return
	}
	c.JSON(http.StatusOK, newAgentResponse(*agent))
}

// SetMood godoc
// @Summary      Set mood/status
// @Description  Either field can be null to clear it.
// @Tags         agents
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        handle path string true "Agent handle"
// @Param        input body MoodInput true "Mood"
// @Success      200  {object}  AgentResponse
// @Router       /agents/{handle}/mood [put]
func SetMood(c *gin.Context) {
	agent, ok := ownedAgent(c)
	if !ok {
		return
	}

	var input MoodInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Text != nil {
		cleaned := sanitize.Text(*input.Text)
		input.Text = &cleaned
	}
	agent.MoodEmoji = input.Emoji
	agent.MoodText = input.Text

	if err := database.DB.Save(agent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update agent"})
		return
	}
	c.JSON(http.StatusOK, newAgentResponse(*agent))
}

// SetBackground godoc
// @Summary      Set profile background
// @Description  Image URL and/or CSS color; null clears a field.
// @Tags         agents
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        handle path string true "Agent handle"
// @Param        input body BackgroundInput true "Background"
// @Success      200  {object}  AgentResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /agents/{handle}/background [put]
func SetBackground(c *gin.Context) {
	agent, ok := ownedAgent(c)
	if !ok {
		return
	}

	var input BackgroundInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.URL != nil {
		trimmed := strings.TrimSpace(*input.URL)
		if trimmed == "" {
			input.URL = nil
		} else if !validHTTPURL(trimmed) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Background URL must be a valid HTTP/HTTPS URL"})
			return
		} else {
			input.URL = &trimmed
		}
	}

	agent.ProfileBackgroundURL = input.URL
	agent.ProfileBackgroundColor = input.Color

	if err := database.DB.Save(agent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update agent"})
		return
	}
	c.JSON(http.StatusOK, newAgentResponse(*agent))
}

// endregion
