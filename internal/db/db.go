package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"titanhub/internal/models"
)

// Options controls how Open reaches the database.
type Options struct {
	DSN          string
	ConnectTries uint64        // attempts before giving up
	ConnectDelay time.Duration // first backoff, doubles each try
	SlowQuery    time.Duration
}

// Open connects to postgres, retrying with exponential backoff until the
// server answers a ping. Startup sequencing relies on this returning only
// once the database is usable.
func Open(ctx context.Context, opts Options, log *slog.Logger) (*gorm.DB, error) {
	if opts.ConnectTries == 0 {
		opts.ConnectTries = 5
	}
	if opts.ConnectDelay <= 0 {
		opts.ConnectDelay = 500 * time.Millisecond
	}

	gormLog := logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             opts.SlowQuery,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	var conn *gorm.DB
	backoff := retry.WithMaxRetries(opts.ConnectTries-1, retry.NewExponential(opts.ConnectDelay))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		db, err := gorm.Open(postgres.Open(opts.DSN), &gorm.Config{Logger: gormLog})
		if err != nil {
			log.Warn("database connect failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			log.Warn("database ping failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		conn = db
		return nil
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("attempts", attempt).Wrapf(err, "connect to database")
	}

	log.Info("database connection established", "attempts", attempt)
	return conn, nil
}

// Migrate creates or updates every table the platform owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Discussion{},
		&models.Comment{},
		&models.Stats{},
		&models.Session{},
	)
	if err != nil {
		return oops.Code("DB_MIGRATE_FAILED").Wrapf(err, "auto migrate")
	}
	return nil
}

// Close releases the underlying pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
