// Package mirror fans document saves out to secondary backends.
package mirror

import (
	"context"
	"errors"
	"log/slog"

	"github.com/OCAP2/fieldmap/internal/storage"
	"github.com/OCAP2/fieldmap/pkg/core"
)

// Backend loads from the primary and saves to the primary and then to
// every mirror. Mirror failures are logged and do not fail the save.
type Backend struct {
	primary storage.Backend
	mirrors []storage.Backend
	log     *slog.Logger
}

// New creates a mirroring backend.
func New(log *slog.Logger, primary storage.Backend, mirrors ...storage.Backend) *Backend {
	return &Backend{primary: primary, mirrors: mirrors, log: log}
}

// Init initializes the primary and then the mirrors.
func (b *Backend) Init() error {
	if err := b.primary.Init(); err != nil {
		return err
	}
	for _, m := range b.mirrors {
		if err := m.Init(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every backend and joins the errors.
func (b *Backend) Close() error {
	errs := []error{b.primary.Close()}
	for _, m := range b.mirrors {
		errs = append(errs, m.Close())
	}
	return errors.Join(errs...)
}

func (b *Backend) Load(ctx context.Context) (*core.RootObject, error) {
	return b.primary.Load(ctx)
}

func (b *Backend) Save(ctx context.Context, root *core.RootObject) error {
	if err := b.primary.Save(ctx, root); err != nil {
		return err
	}
	for _, m := range b.mirrors {
		if err := m.Save(ctx, root); err != nil {
			b.log.Error("Mirror save failed", "backend", location(m), "error", err)
		}
	}
	return nil
}

// Location reports the primary's location.
func (b *Backend) Location() string { return location(b.primary) }

func location(b storage.Backend) string {
	if n, ok := b.(storage.Named); ok {
		return n.Location()
	}
	return "unknown"
}
