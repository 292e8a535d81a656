package repository

import (
	"time"

	gormlogger "gorm.io/gorm/logger"
)

type openOptions struct {
	maxOpenConns int
	maxIdleConns int
	connMaxLife  time.Duration
	logLevel     gormlogger.LogLevel
}

// Option configures Open.
type Option func(*openOptions)

// WithMaxOpenConns caps the connection pool. The sqlite driver always uses one.
func WithMaxOpenConns(n int) Option {
	return func(o *openOptions) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}

// WithMaxIdleConns sets the number of idle pooled connections.
func WithMaxIdleConns(n int) Option {
	return func(o *openOptions) {
		if n >= 0 {
			o.maxIdleConns = n
		}
	}
}

// WithConnMaxLifetime recycles pooled connections after d.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(o *openOptions) {
		if d > 0 {
			o.connMaxLife = d
		}
	}
}

// WithSQLLogging turns on gorm's statement logger at warn level.
func WithSQLLogging() Option {
	return func(o *openOptions) {
		o.logLevel = gormlogger.Warn
	}
}
