// Package memory is a headless display that records what it was asked to
// show.
package memory

import (
	"log/slog"
	"sync"

	"github.com/OCAP2/fieldmap/internal/geo"
	"github.com/OCAP2/fieldmap/internal/markers"
)

// Event kinds recorded by the display.
const (
	EventAdd    = "add"
	EventMove   = "move"
	EventFit    = "fit"
	EventNotice = "notice"
)

// Event is one recorded display call.
type Event struct {
	Kind      string
	SoldierID int
	Position  geo.LatLng
	Viewport  geo.Viewport
	Message   string
}

// Display records calls and logs them at debug level.
type Display struct {
	mu       sync.Mutex
	logger   *slog.Logger
	viewport geo.Viewport
	markers  map[int]geo.LatLng
	events   []Event
}

// New creates a headless display. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Display {
	if logger == nil {
		logger = slog.Default()
	}
	return &Display{
		logger:  logger,
		markers: make(map[int]geo.LatLng),
	}
}

func (d *Display) Init(v geo.Viewport) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.viewport = v
	return nil
}

func (d *Display) Close() error { return nil }

func (d *Display) AddMarker(m *markers.Marker) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.markers[m.SoldierID] = m.Position
	d.events = append(d.events, Event{Kind: EventAdd, SoldierID: m.SoldierID, Position: m.Position})
	d.logger.Debug("Marker added", "soldierId", m.SoldierID, "lat", m.Position.Lat, "lng", m.Position.Lng)
	return nil
}

func (d *Display) MoveMarker(m *markers.Marker) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.markers[m.SoldierID] = m.Position
	d.events = append(d.events, Event{Kind: EventMove, SoldierID: m.SoldierID, Position: m.Position})
	d.logger.Debug("Marker moved", "soldierId", m.SoldierID, "lat", m.Position.Lat, "lng", m.Position.Lng)
	return nil
}

func (d *Display) Fit(v geo.Viewport) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.viewport = v
	d.events = append(d.events, Event{Kind: EventFit, Viewport: v})
	return nil
}

func (d *Display) Notice(msg string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, Event{Kind: EventNotice, Message: msg})
	d.logger.Error(msg)
	return nil
}

// Viewport returns the last view shown.
func (d *Display) Viewport() geo.Viewport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewport
}

// Markers returns the last shown position of every marker.
func (d *Display) Markers() map[int]geo.LatLng {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[int]geo.LatLng, len(d.markers))
	for id, p := range d.markers {
		out[id] = p
	}
	return out
}

// Events returns every recorded call in order.
func (d *Display) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}

// Notices returns the messages shown to the user.
func (d *Display) Notices() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, e := range d.events {
		if e.Kind == EventNotice {
			out = append(out, e.Message)
		}
	}
	return out
}
