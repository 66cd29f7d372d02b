package config

import (
	"fmt"

	"github.com/Govind-619/LibTrack/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB opens the postgres connection and migrates the schema
func InitDB(cfg *Config) error {
	db, err := OpenDB(cfg.DSN(), cfg.IsProduction())
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// OpenDB connects to dsn and migrates the schema
func OpenDB(dsn string, quiet bool) (*gorm.DB, error) {
	gormCfg := &gorm.Config{TranslateError: true}
	if quiet {
		gormCfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table plus the indexes gorm tags cannot express
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Library{},
		&models.Student{},
		&models.PaymentRecord{},
		&models.Reminder{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %v", err)
	}

	// One live (pending or completed) payment per student per month
	err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS ux_payment_records_student_month_active
		ON payment_records (student_id, month)
		WHERE status IN ('pending', 'completed')
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create payment uniqueness index: %v", err)
	}
	return nil
}
