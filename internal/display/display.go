// Package display defines where markers are shown.
package display

import (
	"github.com/OCAP2/fieldmap/internal/geo"
	"github.com/OCAP2/fieldmap/internal/markers"
)

// Display is the on-screen side of the map. Calls are made from the UI loop.
type Display interface {
	// Init prepares the display with the initial view.
	Init(v geo.Viewport) error
	Close() error

	AddMarker(m *markers.Marker) error
	MoveMarker(m *markers.Marker) error
	// Fit recenters and rescales the view and redraws.
	Fit(v geo.Viewport) error
	// Notice shows a one-shot message to the user.
	Notice(msg string) error
}
