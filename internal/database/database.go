package database

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/OCAP2/fieldmap/internal/config"
)

// Manager handles database connections.
type Manager struct {
	DB     *gorm.DB
	SqlDB  *sql.DB
	Logger zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		Logger: log.With().Str("component", "database").Logger(),
	}
}

// ConnectPostgres opens and pings a Postgres database.
func (m *Manager) ConnectPostgres(cfg config.DBConfig) error {
	m.Logger.Debug().Str("host", cfg.Host).Str("port", cfg.Port).Str("database", cfg.Database).
		Msg("Connecting to Postgres DB")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  PostgresDSN(cfg),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := m.attach(db); err != nil {
		return err
	}
	m.SqlDB.SetMaxOpenConns(10)
	m.Logger.Info().Msg("Connected to database")
	return nil
}

// ConnectSqlite opens a SQLite database file. An empty path opens a
// private in-memory database.
func (m *Manager) ConnectSqlite(path string) error {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open sqlite %q: %w", dsn, err)
	}

	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	if err := m.attach(db); err != nil {
		return err
	}
	// one connection keeps an in-memory database alive and shared
	m.SqlDB.SetMaxOpenConns(1)
	if path == "" {
		m.Logger.Info().Msg("Using SQLite DB in memory")
	} else {
		m.Logger.Info().Str("path", path).Msg("Using local SQLite DB")
	}
	return nil
}

func (m *Manager) attach(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to validate connection: %w", err)
	}
	m.DB = db
	m.SqlDB = sqlDB
	return nil
}

// Close releases the connection pool.
func (m *Manager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	err := m.SqlDB.Close()
	m.DB, m.SqlDB = nil, nil
	return err
}

// DumpToDisk writes a snapshot of a SQLite database to a file with
// VACUUM INTO, replacing any existing file.
func (m *Manager) DumpToDisk(path string) error {
	if path == "" {
		return fmt.Errorf("sqlite file path not set")
	}
	if m.DB == nil || m.DB.Name() != "sqlite" {
		return fmt.Errorf("dump requires an open sqlite database")
	}

	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}

	if err := m.DB.Exec("VACUUM INTO '" + strings.ReplaceAll(path, "'", "''") + "';").Error; err != nil {
		return fmt.Errorf("error dumping DB to disk: %w", err)
	}
	return nil
}

// PostgresDSN builds a libpq connection string.
func PostgresDSN(cfg config.DBConfig) string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)
}
