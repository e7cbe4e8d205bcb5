// Package sqlitestorage stores the document in a SQLite file through the
// shared GORM backend.
package sqlitestorage

import (
	"github.com/rs/zerolog"

	"github.com/OCAP2/fieldmap/internal/database"
	gormstorage "github.com/OCAP2/fieldmap/internal/storage/gorm"
)

// Backend wraps the GORM backend and owns its SQLite connection.
type Backend struct {
	*gormstorage.Backend
	path string
	mgr  *database.Manager
}

// New creates a SQLite backend. An empty path keeps the database in memory.
func New(path string, log zerolog.Logger) *Backend {
	return &Backend{
		path: path,
		mgr:  database.NewManager(log),
	}
}

// Init opens the database and migrates the schema.
func (b *Backend) Init() error {
	if err := b.mgr.ConnectSqlite(b.path); err != nil {
		return err
	}
	b.Backend = gormstorage.New(b.mgr.DB, b.mgr.Logger)
	return b.Backend.Init()
}

// Close closes the connection.
func (b *Backend) Close() error {
	return b.mgr.Close()
}

// Location returns the database file path.
func (b *Backend) Location() string {
	if b.path == "" {
		return ":memory:"
	}
	return b.path
}

// Snapshot copies the database to path.
func (b *Backend) Snapshot(path string) error {
	return b.mgr.DumpToDisk(path)
}
