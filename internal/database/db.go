// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"discord-persona-bot/internal/config"
	"discord-persona-bot/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the gorm-backed turn log. It owns its connection pool and is safe
// for concurrent use by many turns.
type DB struct {
	*gorm.DB
}

// StorageError wraps any failure of the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewDB opens the configured store. It does not migrate; call Migrate.
func NewDB(cfg config.Database) (*DB, error) {
	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get connection pool: %w", err)
	}
	if cfg.Driver == config.DriverSQLite {
		// sqlite serialises writers anyway; one connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	return &DB{gormDB}, nil
}

func openDialector(cfg config.Database) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
			cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode)
		return postgres.Open(dsn), nil
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		return sqlite.Open(cfg.Path + "?_journal_mode=WAL&_busy_timeout=5000"), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate creates or upgrades the chat_history table.
func (db *DB) Migrate() error {
	if err := db.AutoMigrate(&models.Turn{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AppendTurn inserts one turn and returns the stored row with its ID and
// CreatedAt filled in.
func (db *DB) AppendTurn(ctx context.Context, userID, channelID int64, role models.Role, text string) (models.Turn, error) {
	turn := models.Turn{
		UserID:    userID,
		ChannelID: channelID,
		Role:      role,
		Text:      text,
	}
	if err := db.WithContext(ctx).Create(&turn).Error; err != nil {
		return models.Turn{}, &StorageError{Op: "append turn", Err: err}
	}
	return turn, nil
}

// RecentTurns returns at most limit turns of the (user, channel) partition,
// most recent first. A limit below 1 is treated as 1.
func (db *DB) RecentTurns(ctx context.Context, userID, channelID int64, limit int) ([]models.Turn, error) {
	if limit < 1 {
		limit = 1
	}

	turns := make([]models.Turn, 0, limit)
	err := db.WithContext(ctx).
		Where("user_id = ? AND channel_id = ?", userID, channelID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&turns).Error
	if err != nil {
		return nil, &StorageError{Op: "recent turns", Err: err}
	}
	return turns, nil
}
