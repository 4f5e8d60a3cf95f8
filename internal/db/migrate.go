package db

import (
	"fmt"

	"github.com/akimovd/deskbot/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model of the audit database.
func AllModels() []interface{} {
	return []interface{}{
		&models.TaskEvent{},
		&models.DeliveryFailure{},
		&models.CartridgeChange{},
	}
}

// AutoMigrate creates or updates all audit tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
