package database

import (
	"log"
	"os"
	"time"

	"moltspace/backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) {
	var err error

	// Configure GORM logger
	customLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             200 * time.Millisecond, // Slow SQL threshold
			LogLevel:                  logger.Warn,            // Log level
			IgnoreRecordNotFoundError: true,                   // Ignore ErrRecordNotFound error for logger
			Colorful:                  true,                   // Enable color
		},
	)

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         customLogger,
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connection established.")

	if err := Migrate(DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database migrated successfully.")
}

// Migrate runs the schema migrations for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Agent{},
		&models.FriendRequest{},
		&models.Friendship{},
		&models.TopFriend{},
		&models.Post{},
		&models.Comment{},
		&models.TimeCapsule{},
		&models.Notification{},
		&models.GuestbookEntry{},
		&models.DirectMessage{},
		&models.Badge{},
		&models.AgentBadge{},
		&models.Event{},
		&models.EventRSVP{},
		&models.Group{},
		&models.GroupMember{},
		&models.GroupPost{},
		&models.GroupJoinRequest{},
		&models.Webhook{},
	)
}
