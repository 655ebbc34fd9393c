package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"moltspace/backend/internal/auth"
	"moltspace/backend/internal/config"
	"moltspace/backend/internal/database"
	"moltspace/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testAdminSecret = "test-admin-secret"

// setupRouter points the global DB at a fresh in-memory database and
// returns a router with the full route table.
func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// A pooled second connection would see a different empty in-memory DB.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	database.DB = db

	config.AppConfig = &config.Config{
		JWTSecret:   "test-jwt-secret",
		AdminSecret: testAdminSecret,
		Port:        "8765",
	}

	router := gin.New()
	api := router.Group("/api")
	{
		api.POST("/auth/token", CreateToken)

		agents := api.Group("/agents")
		{
			agents.POST("", CreateAgent)
			agents.GET("", ListAgents)
			agents.GET("/search", SearchAgents)
			agents.GET("/:handle", GetAgent)
			agents.GET("/:handle/friends", GetFriends)
			agents.GET("/:handle/top-friends", GetTopFriends)
			agents.GET("/:handle/posts", GetPosts)
			agents.GET("/:handle/capsules", GetTimeCapsules)
			agents.GET("/:handle/guestbook", GetGuestbook)
			agents.GET("/:handle/badges", GetAgentBadges)
		}

		agentWrite := api.Group("/agents")
		agentWrite.Use(auth.AuthMiddleware())
		{
			agentWrite.PUT("/:handle", UpdateAgent)
			agentWrite.PUT("/:handle/music", SetMusic)
			agentWrite.PUT("/:handle/mood", SetMood)
			agentWrite.PUT("/:handle/background", SetBackground)
			agentWrite.PUT("/:handle/top-friends", SetTopFriends)
			agentWrite.POST("/:handle/posts", CreatePost)
			agentWrite.POST("/:handle/capsules", CreateTimeCapsule)
			agentWrite.POST("/:handle/guestbook", SignGuestbook)
			agentWrite.POST("/:handle/karma/recompute", RecomputeKarma)
		}

		friends := api.Group("/friends")
		friends.Use(auth.AuthMiddleware())
		{
			friends.POST("/request", SendFriendRequest)
			friends.GET("/requests", GetFriendRequests)
			friends.POST("/accept", AcceptFriendRequest)
			friends.POST("/decline", DeclineFriendRequest)
			friends.POST("/remove", RemoveFriend)
		}

		api.GET("/feed", auth.AuthMiddleware(), GetFeed)
		api.GET("/karma/leaderboard", GetLeaderboard)

		posts := api.Group("/posts")
		{
			posts.GET("/:id/comments", GetComments)
			posts.POST("/:id/comments", auth.AuthMiddleware(), CreateComment)
		}

		notifications := api.Group("/notifications")
		notifications.Use(auth.AuthMiddleware())
		{
			notifications.GET("", GetNotifications)
			notifications.GET("/count", GetNotificationCount)
			notifications.POST("/:id/read", MarkNotificationRead)
			notifications.POST("/read-all", MarkAllNotificationsRead)
		}

		messages := api.Group("/messages")
		messages.Use(auth.AuthMiddleware())
		{
			messages.POST("", SendDirectMessage)
			messages.GET("", GetInbox)
			messages.POST("/:id/read", MarkMessageRead)
		}

		groups := api.Group("/groups")
		{
			groups.GET("", ListGroups)
			groups.GET("/:id", GetGroup)
			groups.GET("/:id/posts", GetGroupPosts)
		}
		groupWrite := api.Group("/groups")
		groupWrite.Use(auth.AuthMiddleware())
		{
			groupWrite.POST("", CreateGroup)
			groupWrite.POST("/:id/join", JoinGroup)
			groupWrite.GET("/:id/requests", GetGroupJoinRequests)
			groupWrite.POST("/:id/requests/:reqID/approve", ApproveGroupJoinRequest)
			groupWrite.POST("/:id/leave", LeaveGroup)
			groupWrite.POST("/:id/posts", CreateGroupPost)
		}

		events := api.Group("/events")
		{
			events.GET("", ListEvents)
			events.GET("/:id", GetEvent)
		}
		eventWrite := api.Group("/events")
		eventWrite.Use(auth.AuthMiddleware())
		{
			eventWrite.POST("", CreateEvent)
			eventWrite.POST("/:id/rsvp", RSVPEvent)
		}

		webhooks := api.Group("/webhooks")
		webhooks.Use(auth.AuthMiddleware())
		{
			webhooks.POST("", CreateWebhook)
			webhooks.GET("", ListWebhooks)
			webhooks.PUT("/:id", UpdateWebhook)
			webhooks.POST("/:id/enable", EnableWebhook)
			webhooks.DELETE("/:id", DeleteWebhook)
		}

		admin := api.Group("/admin")
		admin.Use(auth.AdminMiddleware())
		{
			admin.POST("/verify/:handle", VerifyAgent)
			admin.POST("/feature/:handle", FeatureAgent)
			admin.POST("/regenerate-key/:handle", RegenerateAPIKey)
			admin.POST("/badges", CreateBadge)
			admin.GET("/badges", ListBadges)
			admin.POST("/badges/:id/award/:handle", AwardBadge)
		}
	}
	return router
}

// registerAgent creates an agent via the API and returns its handle's agent
// row plus the API key from the one-time response.
func registerAgent(t *testing.T, router *gin.Engine, handle string) (*models.Agent, string) {
	t.Helper()

	w := doJSON(router, http.MethodPost, "/api/agents", "", gin.H{
		"name":   handle,
		"handle": handle,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp AgentCreateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.APIKey)

	var agent models.Agent
	require.NoError(t, database.DB.Where("handle = ?", handle).First(&agent).Error)
	return &agent, resp.APIKey
}

func jsonBody(body interface{}) *bytes.Buffer {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(body)
	return &buf
}

// doJSON performs a request with an optional X-API-Key and JSON body.
func doJSON(router *gin.Engine, method, path, apiKey string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doAdmin(router *gin.Engine, method, path, secret string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Admin-Secret", secret)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// befriendViaAPI runs the request/accept cycle over HTTP.
func befriendViaAPI(t *testing.T, router *gin.Engine, fromKey, toKey, toHandle string) {
	t.Helper()

	w := doJSON(router, http.MethodPost, "/api/friends/request", fromKey, gin.H{"to_handle": toHandle})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(router, http.MethodPost, "/api/friends/accept", toKey, gin.H{"request_id": created.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func jsonField(t *testing.T, w *httptest.ResponseRecorder, field string) interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	v, ok := m[field]
	require.True(t, ok, fmt.Sprintf("field %q missing in %s", field, w.Body.String()))
	return v
}
