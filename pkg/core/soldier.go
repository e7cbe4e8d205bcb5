// pkg/core/soldier.go
package core

// SoldierInfo is the read-only contract for a roster entry.
type SoldierInfo interface {
	SoldierID() int
	FullName() string
	SoldierRank() string
	SoldierCountry() string
	Training() string
	DisplayColor() Color
}

// Soldier is one roster entry. Soldiers are loaded once and never change
// during a session.
type Soldier struct {
	ID           int    `json:"Id"`
	FirstName    string `json:"FirstName"`
	LastName     string `json:"LastName"`
	Rank         string `json:"Rank"`
	Country      string `json:"Country"`
	TrainingInfo string `json:"TrainingInfo"`
	Color        Color  `json:"Color"`
}

func (s Soldier) SoldierID() int         { return s.ID }
func (s Soldier) FullName() string       { return s.FirstName + " " + s.LastName }
func (s Soldier) SoldierRank() string    { return s.Rank }
func (s Soldier) SoldierCountry() string { return s.Country }
func (s Soldier) Training() string       { return s.TrainingInfo }
func (s Soldier) DisplayColor() Color    { return s.Color }
