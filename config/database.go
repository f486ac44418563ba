package config

import (
	"fmt"
	"strings"

	"github.com/andrewpaige1/doomdeck-api/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the store named by dbURL and migrates every model. URLs with
// a postgres scheme use the postgres driver; anything else is a sqlite DSN.
func Connect(dbURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(dbURL, "postgres://") || strings.HasPrefix(dbURL, "postgresql://") {
		dialector = postgres.Open(dbURL)
	} else {
		dialector = sqlite.Open(dbURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Subject{},
		&models.Chat{},
		&models.Flashcard{},
		&models.UsageCounter{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to auto migrate database: %w", err)
	}

	return db, nil
}
