package database

import (
	"fmt"

	"gorm.io/gorm"

	"parcelscope/server/internal/models"
)

// MigrateSchema creates or updates the parcel tables
func MigrateSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Parcel{}); err != nil {
		return fmt.Errorf("failed to migrate parcels: %w", err)
	}

	// Composite index for trend queries
	err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_parcels_city_created
		ON parcels(city, created_at);
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create city index: %w", err)
	}

	return nil
}

func (d *Database) RunMigrations() error {
	return MigrateSchema(d.db)
}
