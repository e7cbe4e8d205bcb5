// Package interaction turns pointer events into marker drags. Releasing a
// dragged marker appends a correction to the document and saves it.
package interaction

import (
	"context"
	"fmt"
	"time"

	"github.com/OCAP2/fieldmap/internal/geo"
	"github.com/OCAP2/fieldmap/internal/markers"
	"github.com/OCAP2/fieldmap/internal/reconcile"
	"github.com/OCAP2/fieldmap/internal/scene"
	"github.com/OCAP2/fieldmap/internal/telemetry"
	"github.com/OCAP2/fieldmap/pkg/core"
)

// PrimaryButton is the only button that starts a drag.
const PrimaryButton = 0

// Saver persists the whole document.
type Saver interface {
	Save(ctx context.Context, root *core.RootObject) error
}

// Handler is the press/move/release state machine. It is owned by the UI
// loop.
type Handler struct {
	scene    *scene.Scene
	saver    Saver
	recorder reconcile.Recorder
	now      func() time.Time

	dragging *markers.Marker
}

// New creates a handler. recorder may be nil.
func New(s *scene.Scene, saver Saver, recorder reconcile.Recorder) *Handler {
	return &Handler{
		scene:    s,
		saver:    saver,
		recorder: recorder,
		now:      time.Now,
	}
}

// Dragging returns the soldier whose marker is being dragged.
func (h *Handler) Dragging() (int, bool) {
	if h.dragging == nil {
		return 0, false
	}
	return h.dragging.SoldierID, true
}

// Press starts a drag when the primary button goes down on a marker.
func (h *Handler) Press(px geo.Pixel, button int) bool {
	if button != PrimaryButton {
		return false
	}
	m, ok := h.scene.Layer.HitTest(h.scene.View, px, h.scene.MarkerSize)
	if !ok {
		return false
	}
	h.dragging = m
	h.scene.Log.Debug("Drag started", "soldierId", m.SoldierID)
	return true
}

// Move drags the marker under the pointer. Outside a drag it does nothing.
func (h *Handler) Move(px geo.Pixel) bool {
	if h.dragging == nil {
		return false
	}
	pos := h.scene.View.ToLatLng(px)
	m, ok := h.scene.Layer.Move(h.dragging.SoldierID, pos)
	if !ok {
		return false
	}
	if err := h.scene.Display.MoveMarker(m); err != nil {
		h.scene.Log.Warn("Failed to move marker on display", "soldierId", m.SoldierID, "error", err)
	}
	return true
}

// Release ends a drag at px and records the new position. Without a
// preceding press it does nothing.
func (h *Handler) Release(ctx context.Context, px geo.Pixel) (core.PositionUpdate, bool, error) {
	if h.dragging == nil {
		return core.PositionUpdate{}, false, nil
	}
	id := h.dragging.SoldierID
	h.dragging = nil

	u, err := h.Correct(ctx, id, h.scene.View.ToLatLng(px))
	return u, true, err
}

// Correct moves the soldier's marker to pos, appends a single-position
// update stamped now and rewrites the document. When the save fails the
// user gets a notice and the update stays in memory.
func (h *Handler) Correct(ctx context.Context, soldierID int, pos geo.LatLng) (core.PositionUpdate, error) {
	s := h.scene

	u, err := s.Doc.AppendCorrection(soldierID, pos.Lat, pos.Lng, h.now())
	if err != nil {
		return core.PositionUpdate{}, err
	}

	if m, ok := s.Layer.Move(soldierID, pos); ok {
		if err := s.Display.MoveMarker(m); err != nil {
			s.Log.Warn("Failed to move marker on display", "soldierId", soldierID, "error", err)
		}
	}
	s.Log.Info("Position corrected", "soldierId", soldierID, "lat", pos.Lat, "lng", pos.Lng,
		"timestamp", u.Timestamp.String())

	if h.recorder != nil {
		if err := h.recorder.RecordPosition(ctx, soldierID, pos, u.Timestamp.Time, telemetry.SourceCorrection); err != nil {
			s.Log.Warn("Failed to record correction", "soldierId", soldierID, "error", err)
		}
	}

	if err := h.saver.Save(ctx, s.Doc.Root()); err != nil {
		s.Notice(fmt.Sprintf("Error saving data: %v", err))
		return u, fmt.Errorf("save correction: %w", err)
	}
	return u, nil
}

// Resize updates the view size.
func (h *Handler) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	h.scene.View.Width = width
	h.scene.View.Height = height
}
