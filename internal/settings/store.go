// Package settings persists the EnvSettings key/value table through gorm.
package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	mysqldsn "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

var (
	// ErrNotFound is returned when no setting exists for a key.
	ErrNotFound = errors.New("setting not found")
	// ErrInvalidKey is returned for an empty key.
	ErrInvalidKey = errors.New("setting key must not be empty")
)

// EnvSetting is one row of the EnvSettings table.
type EnvSetting struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Key   string `gorm:"uniqueIndex;size:191;not null" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}

// TableName keeps the table name used by the original schema.
func (EnvSetting) TableName() string { return "EnvSettings" }

// Store reads and writes settings.
type Store struct {
	db *gorm.DB
}

// Open connects to the settings database and migrates the schema.
// driver is "sqlite" or "mysql"; dsn is passed to the driver.
func Open(driver, dsn string, logger *zap.Logger) (*Store, error) {
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(logger)})
	if err != nil {
		closePool(db)
		return nil, errors.Wrapf(err, "open %s settings database", driver)
	}
	return newStore(db, driver, dsn)
}

// newStore prepares an opened database for use. The pool is closed when
// preparation fails so a failed Open leaves nothing behind.
func newStore(db *gorm.DB, driver, dsn string) (*Store, error) {
	if driver == "sqlite" && strings.Contains(dsn, ":memory:") {
		// Every pooled connection would otherwise get its own empty database.
		sqlDB, err := db.DB()
		if err != nil {
			closePool(db)
			return nil, errors.Wrap(err, "access sqlite pool")
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&EnvSetting{}); err != nil {
		closePool(db)
		return nil, errors.Wrap(err, "migrate settings schema")
	}
	return &Store{db: db}, nil
}

func closePool(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "sqlite":
		return sqlite.Open(dsn), nil
	case "mysql":
		cfg, err := mysqldsn.ParseDSN(dsn)
		if err != nil {
			return nil, errors.Wrap(err, "parse mysql dsn")
		}
		cfg.ParseTime = true
		return mysql.New(mysql.Config{DSNConfig: cfg}), nil
	default:
		return nil, fmt.Errorf("unsupported settings driver %q", driver)
	}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "access settings pool")
	}
	return sqlDB.Close()
}

// List returns every setting ordered by key.
func (s *Store) List(ctx context.Context) ([]EnvSetting, error) {
	var out []EnvSetting
	if err := s.db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "list settings")
	}
	return out, nil
}

// Get returns the setting stored under key.
func (s *Store) Get(ctx context.Context, key string) (EnvSetting, error) {
	if key == "" {
		return EnvSetting{}, ErrInvalidKey
	}

	var setting EnvSetting
	err := s.db.WithContext(ctx).Where(&EnvSetting{Key: key}).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return EnvSetting{}, ErrNotFound
	}
	if err != nil {
		return EnvSetting{}, errors.Wrapf(err, "get setting %q", key)
	}
	return setting, nil
}

// Set creates the setting or replaces its value.
func (s *Store) Set(ctx context.Context, key, value string) (EnvSetting, error) {
	if key == "" {
		return EnvSetting{}, ErrInvalidKey
	}

	var setting EnvSetting
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where(&EnvSetting{Key: key}).First(&setting).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			setting = EnvSetting{Key: key, Value: value}
			return tx.Create(&setting).Error
		case err != nil:
			return err
		}
		setting.Value = value
		return tx.Save(&setting).Error
	})
	if err != nil {
		return EnvSetting{}, errors.Wrapf(err, "set setting %q", key)
	}
	return setting, nil
}

// Delete removes the setting stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	res := s.db.WithContext(ctx).Where(&EnvSetting{Key: key}).Delete(&EnvSetting{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete setting %q", key)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// zapWriter adapts a sugared zap logger to gorm's Printf-style writer.
type zapWriter struct {
	sugar *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.sugar.Warnf(format, args...)
}

func newGormLogger(logger *zap.Logger) gormlogger.Interface {
	if logger == nil {
		return gormlogger.Discard
	}
	return gormlogger.New(zapWriter{sugar: logger.Named("gorm").Sugar()}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}
