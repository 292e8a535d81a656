// Package repository persists users, the contribution ledger, away periods,
// weekly goals and chat messages in a relational database through gorm.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/okian/commitquest/internal/domain/model"
	"github.com/okian/commitquest/pkg/errs"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is the gorm-backed persistence handle. It is safe for concurrent use.
type Store struct {
	db *gorm.DB
}

// Open connects to the database named by driver and dsn and migrates the schema.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	o := openOptions{maxOpenConns: 10, maxIdleConns: 5, connMaxLife: 30 * time.Minute, logLevel: gormlogger.Silent}
	for _, opt := range opts {
		opt(&o)
	}

	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
		// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
		o.maxOpenConns = 1
		o.maxIdleConns = 1
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(o.logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, errs.WrapKind("repository.Open", errs.ErrStore, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errs.WrapKind("repository.Open", errs.ErrStore, err)
	}
	sqlDB.SetMaxOpenConns(o.maxOpenConns)
	sqlDB.SetMaxIdleConns(o.maxIdleConns)
	sqlDB.SetConnMaxLifetime(o.connMaxLife)

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing gorm handle. The schema is not migrated.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates every table.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&model.User{},
		&model.ContributionEvent{},
		&model.AwayPeriod{},
		&model.WeeklyGoal{},
		&model.Message{},
	)
	return errs.WrapKind("repository.Migrate", errs.ErrStore, err)
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errs.WrapKind("repository.Ping", errs.ErrStore, err)
	}
	return errs.WrapKind("repository.Ping", errs.ErrStore, sqlDB.PingContext(ctx))
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func storeErr(op string, err error) error {
	return errs.WrapKind(op, errs.ErrStore, err)
}
