package database

import (
	"fmt"
	"time"

	"pipeline-crm/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// RetryDelay is the pause between connection attempts.
var RetryDelay = 2 * time.Second

// Connect opens the database, retrying while the server comes up.
func Connect(dialector gorm.Dialector, maxAttempts int, log logrus.FieldLogger) (*gorm.DB, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	cfg := &gorm.Config{
		Logger: gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 1; i <= maxAttempts; i++ {
		log.WithField("attempt", i).Infof("connecting to %s database", dialector.Name())

		db, err = gorm.Open(dialector, cfg)
		if err == nil {
			err = ping(db)
		}
		if err == nil {
			break
		}

		log.WithError(err).Warn("database connection failed")
		if i < maxAttempts {
			time.Sleep(RetryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect after %d attempts: %w", maxAttempts, err)
	}

	// SQLite leaves foreign keys off unless asked, per connection.
	if db.Dialector.Name() == "sqlite" {
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	log.Info("connected to database")
	return db, nil
}

func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// EnsureSchema creates every table, index and constraint that is missing. It never drops or
// relaxes anything, so it runs on each start.
func EnsureSchema(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.Contact{},
		&models.Deal{},
		&models.Activity{},
		&models.DealAssignment{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
