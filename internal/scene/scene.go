// Package scene holds the state owned by the UI loop: the document, the
// marker layer, the current view and the display they are shown on.
package scene

import (
	"log/slog"

	"github.com/OCAP2/fieldmap/internal/display"
	"github.com/OCAP2/fieldmap/internal/document"
	"github.com/OCAP2/fieldmap/internal/geo"
	"github.com/OCAP2/fieldmap/internal/markers"
)

// DefaultMarkerSize is the marker diameter in pixels.
const DefaultMarkerSize = 30

// Scene must only be touched from the UI loop.
type Scene struct {
	Doc        *document.Document
	Layer      *markers.Layer
	View       geo.Viewport
	Display    display.Display
	MarkerSize int
	Log        *slog.Logger
}

// New creates a scene with an empty marker layer.
func New(doc *document.Document, view geo.Viewport, d display.Display, markerSize int, log *slog.Logger) *Scene {
	if markerSize <= 0 {
		markerSize = DefaultMarkerSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scene{
		Doc:        doc,
		Layer:      markers.NewLayer(),
		View:       view,
		Display:    d,
		MarkerSize: markerSize,
		Log:        log,
	}
}

// Refit recenters and rescales the view on all markers and redraws.
func (s *Scene) Refit() {
	s.View = s.View.Fit(s.Layer.Positions())
	if err := s.Display.Fit(s.View); err != nil {
		s.Log.Warn("Failed to fit view", "error", err)
	}
}

// Notice shows msg to the user once and logs it.
func (s *Scene) Notice(msg string) {
	s.Log.Error(msg)
	if err := s.Display.Notice(msg); err != nil {
		s.Log.Warn("Failed to show notice", "error", err)
	}
}

// Resend pushes the view and every marker to the display again, in
// creation order.
func (s *Scene) Resend() {
	if err := s.Display.Fit(s.View); err != nil {
		s.Log.Warn("Failed to resend view", "error", err)
		return
	}
	for _, m := range s.Layer.All() {
		if err := s.Display.AddMarker(m); err != nil {
			s.Log.Warn("Failed to resend marker", "soldierId", m.SoldierID, "error", err)
			return
		}
	}
}
