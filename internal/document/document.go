// Package document holds the loaded roster and update log for a session.
package document

import (
	"errors"
	"fmt"
	"time"

	"github.com/OCAP2/fieldmap/pkg/core"
)

// ErrUnknownSoldier is returned when a correction names a soldier that is
// not on the roster.
var ErrUnknownSoldier = errors.New("unknown soldier")

// Document wraps a RootObject with an index of the roster. It is owned by
// the UI loop and is not safe for concurrent use.
type Document struct {
	root     *core.RootObject
	soldiers map[int]*core.Soldier
}

// New indexes root. Duplicate soldier ids keep the first entry.
func New(root *core.RootObject) *Document {
	if root.PositionUpdates == nil {
		root.PositionUpdates = []core.PositionUpdate{}
	}
	d := &Document{
		root:     root,
		soldiers: make(map[int]*core.Soldier, len(root.Soldiers)),
	}
	for i := range root.Soldiers {
		s := &root.Soldiers[i]
		if _, ok := d.soldiers[s.ID]; !ok {
			d.soldiers[s.ID] = s
		}
	}
	return d
}

// Root returns the underlying document for persistence.
func (d *Document) Root() *core.RootObject { return d.root }

// Soldier looks up a roster entry by id.
func (d *Document) Soldier(id int) (*core.Soldier, bool) {
	s, ok := d.soldiers[id]
	return s, ok
}

// Updates returns a copy of the update log as it is now.
func (d *Document) Updates() []core.PositionUpdate {
	out := make([]core.PositionUpdate, len(d.root.PositionUpdates))
	copy(out, d.root.PositionUpdates)
	return out
}

// LatestTimestamp returns the newest timestamp of any update mentioning the
// soldier, or the zero Timestamp when there is none.
func (d *Document) LatestTimestamp(id int) core.Timestamp {
	var latest core.Timestamp
	for _, u := range d.root.PositionUpdates {
		for _, p := range u.Positions {
			if p.SoldierID == id {
				if latest.IsZero() || u.Timestamp.After(latest.Time) {
					latest = u.Timestamp
				}
				break
			}
		}
	}
	return latest
}

// AppendCorrection records a single-position update for the soldier at the
// given time and returns it.
func (d *Document) AppendCorrection(id int, lat, lng float64, at time.Time) (core.PositionUpdate, error) {
	if _, ok := d.soldiers[id]; !ok {
		return core.PositionUpdate{}, fmt.Errorf("%w: %d", ErrUnknownSoldier, id)
	}
	u := core.PositionUpdate{
		Timestamp: core.NewTimestamp(at),
		Positions: []core.Position{{SoldierID: id, Latitude: lat, Longitude: lng}},
	}
	d.root.PositionUpdates = append(d.root.PositionUpdates, u)
	return u, nil
}
