// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/OCAP2/fieldmap/pkg/core"
)

// ErrNotFound is returned by Load when the backend holds no document yet.
var ErrNotFound = errors.New("document not found")

// Backend is the interface all storage implementations must satisfy.
// Save always rewrites the whole document.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	Load(ctx context.Context) (*core.RootObject, error)
	Save(ctx context.Context, root *core.RootObject) error
}

// Named is implemented by backends that can describe where they write.
type Named interface {
	Location() string
}
