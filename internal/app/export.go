package app

import (
	"context"
	"fmt"

	"github.com/OCAP2/fieldmap/internal/storage"
)

// Export copies the document held by src into dst. dst is initialized
// first; neither backend is closed.
func Export(ctx context.Context, src, dst storage.Backend) (soldiers, updates int, err error) {
	root, err := src.Load(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load source: %w", err)
	}
	if err := dst.Init(); err != nil {
		return 0, 0, fmt.Errorf("failed to initialize destination: %w", err)
	}
	if err := dst.Save(ctx, root); err != nil {
		return 0, 0, fmt.Errorf("failed to save destination: %w", err)
	}
	return len(root.Soldiers), len(root.PositionUpdates), nil
}

// SnapshotBackend is a backend that can copy itself to a file.
type SnapshotBackend interface {
	storage.Backend
	Snapshot(path string) error
}

// ExportSnapshot exports src into dst and then writes dst to path.
func ExportSnapshot(ctx context.Context, src storage.Backend, dst SnapshotBackend, path string) (soldiers, updates int, err error) {
	soldiers, updates, err = Export(ctx, src, dst)
	if err != nil {
		return 0, 0, err
	}
	if err := dst.Snapshot(path); err != nil {
		return 0, 0, fmt.Errorf("failed to write snapshot: %w", err)
	}
	return soldiers, updates, nil
}
