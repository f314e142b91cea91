package database

import (
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"example.com/backstage/services/pickaudit/config"
	"example.com/backstage/services/pickaudit/internal/models"
)

// Connect opens the write and read-only databases and applies the pool
// settings to both. An empty read-only DSN reuses the write connection.
func Connect(cfg config.DatabaseConfig, logLevel logger.LogLevel) (*gorm.DB, *gorm.DB, error) {
	db, err := open(cfg, cfg.DSN, logLevel)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to write database")
	}

	if cfg.ReadOnlyDSN == "" || cfg.ReadOnlyDSN == cfg.DSN {
		return db, db, nil
	}

	readOnlyDB, err := open(cfg, cfg.ReadOnlyDSN, logLevel)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to read-only database")
	}
	return db, readOnlyDB, nil
}

func open(cfg config.DatabaseConfig, dsn string, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get DB instance")
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

// Migrate runs the schema migrations on the write database
func Migrate(db *gorm.DB) error {
	return models.SetupModels(db)
}

// Close closes the underlying connections
func Close(dbs ...*gorm.DB) {
	seen := make(map[*gorm.DB]struct{}, len(dbs))
	for _, db := range dbs {
		if db == nil {
			continue
		}
		if _, ok := seen[db]; ok {
			continue
		}
		seen[db] = struct{}{}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
