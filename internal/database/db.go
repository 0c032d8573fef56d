package database

import (
	"fmt"
	"log/slog"
	"strings"

	"fleethub/internal/config"
	"fleethub/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDB opens the backing store. The driver is chosen from the URL:
// postgres:// goes through the postgres driver, anything else is treated
// as a sqlite path (":memory:" works for tests).
func ConnectDB(cfg *config.Config, log *slog.Logger) (*gorm.DB, error) {
	dialector := dialectorFor(cfg.DatabaseURL)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Vehicle{},
		&models.Engineer{},
		&models.Laptop{},
		&models.ContactDetails{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Info("database_connected", "url", cfg.DatabaseURL)
	return db, nil
}

func dialectorFor(url string) gorm.Dialector {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return postgres.Open(url)
	}
	return sqlite.Open(url)
}
