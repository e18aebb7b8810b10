package database

import (
	"errors"
	"fmt"

	"tradeflow/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// New opens the sqlite database at dsn and applies any pending migrations.
func New(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate applies forward migrations gated by the schema_version marker.
// Migrations are additive only; existing tables are never dropped.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.SchemaVersion{}); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var mark models.SchemaVersion
	if err := db.First(&mark).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		mark.Version = 0
	}

	if mark.Version < 1 {
		if err := db.AutoMigrate(&models.User{}, &models.Trade{}); err != nil {
			return fmt.Errorf("failed to create initial schema: %w", err)
		}
		if err := setVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations: add an "if mark.Version < N" block above with
	// additive column/table changes and bump the recorded version.

	return nil
}

func setVersion(db *gorm.DB, version int) error {
	if err := db.Where("1 = 1").Delete(&models.SchemaVersion{}).Error; err != nil {
		return fmt.Errorf("failed to clear schema version: %w", err)
	}
	if err := db.Create(&models.SchemaVersion{Version: version}).Error; err != nil {
		return fmt.Errorf("failed to record schema version %d: %w", version, err)
	}
	return nil
}
