package auth

import (
	"fmt"
	"net/http"
	"strings"

	"moltspace/backend/internal/config"
	"moltspace/backend/internal/database"
	"moltspace/backend/internal/models"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware resolves the caller to an agent. Two credentials are
// accepted: the agent's opaque API key in X-API-Key, or a Bearer JWT minted
// from that key via POST /api/auth/token. On success the agent's ID is set
// in the context under "agentID".
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("X-API-Key"); key != "" {
			var agent models.Agent
			if err := database.DB.Where("api_key = ?", key).First(&agent).Error; err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
				return
			}
			c.Set("agentID", agent.ID)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing API key or bearer token"})
			return
		}

		token, err := gojwt.Parse(parts[1], func(token *gojwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*gojwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(config.AppConfig.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		claims, ok := token.Claims.(gojwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		agentIDFloat, ok := claims["sub"].(float64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		// The agent must still exist; keys can be regenerated and profiles
		// removed while a token is outstanding.
		var agent models.Agent
		if err := database.DB.First(&agent, uint(agentIDFloat)).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Agent no longer exists"})
			return
		}

		c.Set("agentID", agent.ID)
		c.Next()
	}
}

// CurrentAgent loads the authenticated agent for the request. It must only
// be called behind AuthMiddleware.
func CurrentAgent(c *gin.Context) (*models.Agent, error) {
	agentID, exists := c.Get("agentID")
	if !exists {
		return nil, fmt.Errorf("no authenticated agent in context")
	}
	var agent models.Agent
	if err := database.DB.First(&agent, agentID.(uint)).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}
