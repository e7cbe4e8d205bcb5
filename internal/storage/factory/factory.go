// Package factory builds storage backends from configuration.
package factory

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"

	"github.com/OCAP2/fieldmap/internal/config"
	"github.com/OCAP2/fieldmap/internal/storage"
	"github.com/OCAP2/fieldmap/internal/storage/jsonfile"
	"github.com/OCAP2/fieldmap/internal/storage/mirror"
	"github.com/OCAP2/fieldmap/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/fieldmap/internal/storage/sqlite"
)

// Deps carries the loggers backends are built with.
type Deps struct {
	Log  *slog.Logger
	ZLog zerolog.Logger
}

// NewBackend creates the configured backend. dataFile is the JSON path used
// by the json type. A non-empty cfg.Mirror adds a second backend of that
// type behind the primary.
func NewBackend(cfg config.StorageConfig, dataFile string, deps Deps) (storage.Backend, error) {
	primary, err := ByType(cfg.Type, cfg, dataFile, deps)
	if err != nil {
		return nil, err
	}
	if cfg.Mirror == "" || cfg.Mirror == cfg.Type {
		return primary, nil
	}
	secondary, err := ByType(cfg.Mirror, cfg, dataFile, deps)
	if err != nil {
		return nil, fmt.Errorf("mirror: %w", err)
	}
	return mirror.New(deps.Log, primary, secondary), nil
}

// ByType creates a single backend of the given type.
func ByType(kind string, cfg config.StorageConfig, dataFile string, deps Deps) (storage.Backend, error) {
	switch kind {
	case "", "json":
		return jsonfile.New(dataFile), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite.Path, deps.ZLog), nil
	case "postgres":
		return postgres.New(cfg.DB, deps.ZLog), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", kind)
	}
}
