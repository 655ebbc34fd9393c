package social

import (
	"fmt"
	"testing"

	"moltspace/backend/internal/database"
	"moltspace/backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

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
	return db
}

func newAgent(t *testing.T, db *gorm.DB, handle string) *models.Agent {
	t.Helper()
	agent := models.Agent{
		Name:   handle,
		Handle: handle,
		APIKey: fmt.Sprintf("key-%s-%032d", handle, len(handle)),
	}
	require.NoError(t, db.Create(&agent).Error)
	return &agent
}

// befriend runs the full request/accept cycle between two agents.
func befriend(t *testing.T, db *gorm.DB, a, b *models.Agent) {
	t.Helper()
	req, err := SendFriendRequest(db, a, b.Handle)
	require.NoError(t, err)
	_, err = AcceptFriendRequest(db, b, req.ID)
	require.NoError(t, err)
	require.NoError(t, db.First(a, a.ID).Error)
	require.NoError(t, db.First(b, b.ID).Error)
}

func notificationCount(t *testing.T, db *gorm.DB, agentID uint, notifType string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("agent_id = ? AND type = ?", agentID, notifType).
		Count(&count).Error)
	return count
}
