package gormstorage

import (
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/OCAP2/fieldmap/internal/palette"
	"github.com/OCAP2/fieldmap/pkg/core"
)

// DocumentInfo marks that a document has been saved. Load reports
// storage.ErrNotFound while the table is empty.
type DocumentInfo struct {
	ID           uint `gorm:"primarykey"`
	SavedAt      time.Time
	SoldierCount int
	UpdateCount  int
}

func (DocumentInfo) TableName() string { return "document_info" }

// Soldier is the roster row.
type Soldier struct {
	ID           int    `gorm:"primarykey;autoIncrement:false"`
	Seq          int    `gorm:"index"`
	FirstName    string `gorm:"size:128"`
	LastName     string `gorm:"size:128"`
	Rank         string `gorm:"size:64"`
	Country      string `gorm:"size:64"`
	TrainingInfo string
	Color        string `gorm:"size:16"`
}

func (Soldier) TableName() string { return "soldiers" }

// PositionUpdate is one update record. Seq keeps log order; the timestamp
// is kept as written so zoneless values survive a round trip.
type PositionUpdate struct {
	ID        uint   `gorm:"primarykey"`
	Seq       int    `gorm:"uniqueIndex"`
	Timestamp string `gorm:"size:40"`
	Positions datatypes.JSONSlice[core.Position]
}

func (PositionUpdate) TableName() string { return "position_updates" }

// Models lists every table migrated by Init.
var Models = []any{
	&DocumentInfo{},
	&Soldier{},
	&PositionUpdate{},
}

func soldierToModel(seq int, s core.Soldier) Soldier {
	return Soldier{
		ID:           s.ID,
		Seq:          seq,
		FirstName:    s.FirstName,
		LastName:     s.LastName,
		Rank:         s.Rank,
		Country:      s.Country,
		TrainingInfo: s.TrainingInfo,
		Color:        s.Color.String(),
	}
}

func soldierFromModel(m Soldier) (core.Soldier, error) {
	c, err := palette.Decode(m.Color)
	if err != nil {
		return core.Soldier{}, fmt.Errorf("soldier %d: %w", m.ID, err)
	}
	return core.Soldier{
		ID:           m.ID,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Rank:         m.Rank,
		Country:      m.Country,
		TrainingInfo: m.TrainingInfo,
		Color:        core.Color(c),
	}, nil
}

func updateToModel(seq int, u core.PositionUpdate) PositionUpdate {
	positions := u.Positions
	if positions == nil {
		positions = []core.Position{}
	}
	return PositionUpdate{
		Seq:       seq,
		Timestamp: u.Timestamp.String(),
		Positions: datatypes.JSONSlice[core.Position](positions),
	}
}

func updateFromModel(m PositionUpdate) (core.PositionUpdate, error) {
	ts, err := core.ParseTimestamp(m.Timestamp)
	if err != nil {
		return core.PositionUpdate{}, fmt.Errorf("update %d: %w", m.Seq, err)
	}
	positions := []core.Position(m.Positions)
	if positions == nil {
		positions = []core.Position{}
	}
	return core.PositionUpdate{Timestamp: ts, Positions: positions}, nil
}
