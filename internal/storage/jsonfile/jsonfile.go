// Package jsonfile stores the document as one indented JSON file. Paths
// ending in .gz are gzip-compressed.
package jsonfile

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/OCAP2/fieldmap/internal/storage"
	"github.com/OCAP2/fieldmap/pkg/core"
)

// ErrNullDocument is returned for a file whose top-level value is null.
var ErrNullDocument = errors.New("document is null")

// Backend reads and writes a single JSON document on disk.
type Backend struct {
	path string
}

// New creates a backend for the file at path.
func New(path string) *Backend {
	return &Backend{path: path}
}

// Init creates the parent directory when it is missing.
func (b *Backend) Init() error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

func (b *Backend) Close() error { return nil }

// Location returns the file path.
func (b *Backend) Location() string { return b.path }

func (b *Backend) compressed() bool {
	return strings.HasSuffix(strings.ToLower(b.path), ".gz")
}

// Load reads and decodes the file.
func (b *Backend) Load(_ context.Context) (*core.RootObject, error) {
	f, err := os.Open(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, b.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", b.path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if b.compressed() {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", b.path, err)
		}
		defer gz.Close()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}
	// tolerate a UTF-8 byte order mark
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var root *core.RootObject
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", b.path, err)
	}
	if root == nil {
		return nil, fmt.Errorf("failed to decode %s: %w", b.path, ErrNullDocument)
	}
	if root.Soldiers == nil {
		root.Soldiers = []core.Soldier{}
	}
	if root.PositionUpdates == nil {
		root.PositionUpdates = []core.PositionUpdate{}
	}
	return root, nil
}

// Save rewrites the file with the whole document, indented by two spaces.
func (b *Backend) Save(_ context.Context, root *core.RootObject) error {
	data, err := Encode(root)
	if err != nil {
		return err
	}

	if b.compressed() {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(data); err != nil {
			return fmt.Errorf("failed to compress document: %w", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("failed to compress document: %w", err)
		}
		data = buf.Bytes()
	}

	if err := os.WriteFile(b.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", b.path, err)
	}
	return nil
}

// Encode renders the document the way it is written to disk.
func Encode(root *core.RootObject) ([]byte, error) {
	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}
