// Package gormstorage implements storage.Backend on top of GORM. The
// sqlite and postgres backends share it and only differ in how the
// connection is opened.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/OCAP2/fieldmap/internal/storage"
	"github.com/OCAP2/fieldmap/pkg/core"
)

const batchSize = 500

// Backend implements storage.Backend with GORM.
type Backend struct {
	db  *gorm.DB
	log zerolog.Logger
}

// New wraps an open connection.
func New(db *gorm.DB, log zerolog.Logger) *Backend {
	return &Backend{db: db, log: log}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB { return b.db }

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.db == nil {
		return fmt.Errorf("gorm backend has no database")
	}
	b.log.Info().Str("dialect", b.db.Name()).Msg("Migrating schema")
	if err := b.db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close is a no-op; the connection belongs to whoever opened it.
func (b *Backend) Close() error { return nil }

// Load reads the roster and the update log in saved order.
func (b *Backend) Load(ctx context.Context) (*core.RootObject, error) {
	db := b.db.WithContext(ctx)

	var info DocumentInfo
	err := db.Order("id desc").First(&info).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document info: %w", err)
	}

	var soldiers []Soldier
	if err := db.Order("seq").Find(&soldiers).Error; err != nil {
		return nil, fmt.Errorf("failed to read soldiers: %w", err)
	}
	var updates []PositionUpdate
	if err := db.Order("seq").Find(&updates).Error; err != nil {
		return nil, fmt.Errorf("failed to read position updates: %w", err)
	}

	root := &core.RootObject{
		Soldiers:        make([]core.Soldier, 0, len(soldiers)),
		PositionUpdates: make([]core.PositionUpdate, 0, len(updates)),
	}
	for _, m := range soldiers {
		s, err := soldierFromModel(m)
		if err != nil {
			return nil, err
		}
		root.Soldiers = append(root.Soldiers, s)
	}
	for _, m := range updates {
		u, err := updateFromModel(m)
		if err != nil {
			return nil, err
		}
		root.PositionUpdates = append(root.PositionUpdates, u)
	}
	return root, nil
}

// Save replaces the stored document in one transaction.
func (b *Backend) Save(ctx context.Context, root *core.RootObject) error {
	start := time.Now()

	soldiers := make([]Soldier, 0, len(root.Soldiers))
	seen := make(map[int]bool, len(root.Soldiers))
	for i, s := range root.Soldiers {
		// the roster keeps the first entry for a duplicated id
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		soldiers = append(soldiers, soldierToModel(i, s))
	}
	updates := make([]PositionUpdate, 0, len(root.PositionUpdates))
	for i, u := range root.PositionUpdates {
		updates = append(updates, updateToModel(i, u))
	}

	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&PositionUpdate{}, &Soldier{}, &DocumentInfo{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("failed to clear table: %w", err)
			}
		}
		if len(soldiers) > 0 {
			if err := tx.CreateInBatches(soldiers, batchSize).Error; err != nil {
				return fmt.Errorf("failed to write soldiers: %w", err)
			}
		}
		if len(updates) > 0 {
			if err := tx.CreateInBatches(updates, batchSize).Error; err != nil {
				return fmt.Errorf("failed to write position updates: %w", err)
			}
		}
		return tx.Create(&DocumentInfo{
			SavedAt:      time.Now().UTC(),
			SoldierCount: len(soldiers),
			UpdateCount:  len(updates),
		}).Error
	})
	if err != nil {
		return err
	}

	b.log.Debug().Int("soldiers", len(soldiers)).Int("updates", len(updates)).
		Dur("duration", time.Since(start)).Msg("Saved document")
	return nil
}
