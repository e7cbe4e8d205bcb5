// Package postgres stores the document in PostgreSQL through the shared
// GORM backend.
package postgres

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/OCAP2/fieldmap/internal/config"
	"github.com/OCAP2/fieldmap/internal/database"
	gormstorage "github.com/OCAP2/fieldmap/internal/storage/gorm"
)

// Backend wraps the GORM backend and owns its Postgres connection.
type Backend struct {
	*gormstorage.Backend
	cfg config.DBConfig
	mgr *database.Manager
}

// New creates a Postgres backend. No connection is made until Init.
func New(cfg config.DBConfig, log zerolog.Logger) *Backend {
	return &Backend{
		cfg: cfg,
		mgr: database.NewManager(log),
	}
}

// Init connects and migrates the schema.
func (b *Backend) Init() error {
	if err := b.mgr.ConnectPostgres(b.cfg); err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	b.Backend = gormstorage.New(b.mgr.DB, b.mgr.Logger)
	return b.Backend.Init()
}

// Close closes the connection.
func (b *Backend) Close() error {
	return b.mgr.Close()
}

// Location names the database without credentials.
func (b *Backend) Location() string {
	return fmt.Sprintf("postgres://%s:%s/%s", b.cfg.Host, b.cfg.Port, b.cfg.Database)
}
