package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/config"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// DSN builds the driver specific data source name.
func DSN(cfg *config.Config) string {
	if cfg.DBDriver == "postgres" {
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
	}
	// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
}

func dialector(cfg *config.Config) gorm.Dialector {
	if cfg.DBDriver == "postgres" {
		return postgres.Open(DSN(cfg))
	}
	return mysql.New(mysql.Config{
		DSN:                       DSN(cfg),
		DefaultStringSize:         256,
		SkipInitializeWithVersion: false,
	})
}

// SetupDatabase connects with retries and migrates the reconciliation
// tables. TranslateError is required: duplicate processed keys surface as
// gorm.ErrDuplicatedKey.
func SetupDatabase(cfg *config.Config) (*gorm.DB, error) {
	var err error
	for i := 0; i < maxRetries; i++ {
		var db *gorm.DB
		db, err = gorm.Open(dialector(cfg), &gorm.Config{TranslateError: true})
		if err == nil {
			if err = Migrate(db); err != nil {
				return nil, err
			}
			log.Infof("[Database] Connected to %s at %s:%s", cfg.DBDriver, cfg.DBHost, cfg.DBPort)
			return db, nil
		}

		log.Warnf("[Database] Failed to connect (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("connect database: %w", err)
}

// Migrate brings the reconciliation tables up to date.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&models.WebhookLog{},
		&models.PaymentTransaction{},
		&models.Invoice{},
		&models.PaymentMethod{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
