// pkg/core/position.go
package core

// PositionInfo is the read-only contract for a single observation.
type PositionInfo interface {
	Soldier() int
	LatLng() (lat, lng float64)
}

// UpdateInfo is the read-only contract for an update record.
type UpdateInfo interface {
	At() Timestamp
	Observations() []Position
}

// Position places one soldier at a WGS84 coordinate, in degrees.
type Position struct {
	SoldierID int     `json:"SoldierId"`
	Latitude  float64 `json:"Latitude"`
	Longitude float64 `json:"Longitude"`
}

func (p Position) Soldier() int               { return p.SoldierID }
func (p Position) LatLng() (lat, lng float64) { return p.Latitude, p.Longitude }

// PositionUpdate is a timestamped batch of observations. The log of updates
// is append-only.
type PositionUpdate struct {
	Timestamp Timestamp  `json:"Timestamp"`
	Positions []Position `json:"Positions"`
}

func (u PositionUpdate) At() Timestamp            { return u.Timestamp }
func (u PositionUpdate) Observations() []Position { return u.Positions }

// RootObject is the whole persisted document.
type RootObject struct {
	Soldiers        []Soldier        `json:"Soldiers"`
	PositionUpdates []PositionUpdate `json:"PositionUpdates"`
}
