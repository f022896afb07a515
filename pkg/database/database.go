package database

import (
	"context"
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aqarlink/crm/pkg/models"
)

// Client holds the database connection.
type Client struct {
	DB *gorm.DB
}

// NewClient connects to postgres and runs the migrations.
func NewClient(databaseURL string) (*Client, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed opening connection to postgres: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("✅ Database connected and migrations applied")

	return &Client{DB: db}, nil
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Lead{},
		&models.LeadStatusHistory{},
		&models.LeadAssignment{},
		&models.Client{},
		&models.Interaction{},
		&models.Reminder{},
		&models.Notification{},
		&models.AuditLog{},
		&models.BackupRecord{},
	)
	if err != nil {
		return fmt.Errorf("failed running migrations: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks whether the database is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
