package storage

import (
	"companion-booking-server/models"
	"errors"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitializeDB opens the Postgres connection from DB_CONNECTION_STRING and runs
// migrations. The handle is returned to the caller for injection; there is no
// package-level connection.
func InitializeDB() (*gorm.DB, error) {
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		return nil, errors.New("DB_CONNECTION_STRING environment variable is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the schema. Exported so tests can migrate an
// in-memory store.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Companion{},
		&models.Booking{},
		&models.ChatMessage{},
		&models.AuditLog{},
	)
}
