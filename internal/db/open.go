package db

import (
	"fmt"
	"time"
	"travel_tax/internal/config" // Custom package for configuration

	"gorm.io/driver/mysql"    // MySQL driver for GORM
	"gorm.io/driver/postgres" // Postgres driver for GORM
	"gorm.io/driver/sqlite"   // SQLite driver for GORM
	"gorm.io/gorm"            // GORM ORM library
	"gorm.io/gorm/logger"
)

// DSN builds the data source name for the configured driver
func DSN(cfg *config.Config) string {
	switch cfg.DBDriver {
	case "postgres":
		port := cfg.DBPort
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.DBHost, port, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
	case "sqlite":
		return cfg.DBName + "?_foreign_keys=on"
	default:
		port := cfg.DBPort
		if port == "" {
			port = "3306"
		}
		return cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + port + ")/" + cfg.DBName + "?parseTime=true"
	}
}

// Dialector picks the GORM dialector for the configured driver
func Dialector(cfg *config.Config) gorm.Dialector {
	dsn := DSN(cfg)
	switch cfg.DBDriver {
	case "postgres":
		return postgres.Open(dsn)
	case "sqlite":
		return sqlite.Open(dsn)
	default:
		return mysql.Open(dsn)
	}
}

// Open connects to the database and sizes the connection pool
func Open(cfg *config.Config) (*gorm.DB, error) {
	return OpenDialector(Dialector(cfg), cfg.IsProd)
}

// OpenDialector opens a handle with the settings every caller relies on:
// duplicate-key errors are translated to gorm.ErrDuplicatedKey.
func OpenDialector(d gorm.Dialector, quiet bool) (*gorm.DB, error) {
	gcfg := &gorm.Config{TranslateError: true}
	if quiet {
		gcfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(d, gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Close releases the connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
