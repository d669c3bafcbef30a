// Package db opens the gorm database handle for the configured backend.
package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a gorm DB for the given backend type.
// Supported types: sqlite (default), postgres, mysql.
func Connect(dbType, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	var dialector gorm.Dialector
	switch dbType {
	case "", "sqlite":
		if dsn == "" {
			dsn = "issuance.db"
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("postgres requires a DSN")
		}
		dialector = postgres.Open(dsn)
	case "mysql":
		if dsn == "" {
			return nil, fmt.Errorf("mysql requires a DSN")
		}
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	gormDB, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dbType, err)
	}
	return gormDB, nil
}
