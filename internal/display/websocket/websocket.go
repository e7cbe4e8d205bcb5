// Package websocket streams markers to a remote map display and receives
// its pointer events.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/OCAP2/fieldmap/internal/display"
	"github.com/OCAP2/fieldmap/internal/geo"
	"github.com/OCAP2/fieldmap/internal/markers"
	"github.com/OCAP2/fieldmap/pkg/streaming"
)

// Config holds WebSocket display configuration.
type Config struct {
	URL    string
	Secret string
}

// Display implements display.Display over a WebSocket connection.
type Display struct {
	conn *connection
	cfg  Config
}

var _ display.Display = (*Display)(nil)

// New creates a WebSocket display. A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger) *Display {
	if logger == nil {
		logger = slog.Default()
	}
	return &Display{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// OnMessage sets the handler for inbound display messages (pointer events,
// resize). It must be set before Init and is called from the read goroutine.
func (d *Display) OnMessage(h func(streaming.Envelope)) {
	d.conn.inbound = h
}

// OnReconnect sets a hook run after the connection has been re-established,
// typically to re-send all markers. It must be set before Init.
func (d *Display) OnReconnect(h func()) {
	d.conn.reconnected = h
}

// Init connects to the display and starts the session with the initial
// view, waiting for the display to acknowledge it.
func (d *Display) Init(v geo.Viewport) error {
	if err := d.conn.dial(d.cfg.URL, d.cfg.Secret); err != nil {
		return err
	}

	data, err := marshalEnvelope(streaming.TypeStartSession, viewportPayload(v))
	if err != nil {
		return err
	}

	d.conn.mu.Lock()
	d.conn.cachedStartMsg = data
	d.conn.mu.Unlock()

	return d.conn.sendAndWait(data, streaming.TypeStartSession, ackTimeout)
}

// Close ends the session and disconnects.
func (d *Display) Close() error {
	data, err := marshalEnvelope(streaming.TypeEndSession, nil)
	if err == nil {
		if err := d.conn.sendAndWait(data, streaming.TypeEndSession, ackTimeout); err != nil {
			d.conn.logger.Warn("Display did not acknowledge end_session", "error", err)
		}
	}
	return d.conn.close()
}

func (d *Display) AddMarker(m *markers.Marker) error {
	return d.sendEnvelope(streaming.TypeAddMarker, streaming.MarkerPayload{
		SoldierID: m.SoldierID,
		Position:  latLng(m.Position),
		Color:     m.Color,
		Tooltip:   m.Tooltip,
		Size:      m.Size,
	})
}

func (d *Display) MoveMarker(m *markers.Marker) error {
	return d.sendEnvelope(streaming.TypeMoveMarker, streaming.MovePayload{
		SoldierID: m.SoldierID,
		Position:  latLng(m.Position),
	})
}

func (d *Display) Fit(v geo.Viewport) error {
	return d.sendEnvelope(streaming.TypeFitView, viewportPayload(v))
}

func (d *Display) Notice(msg string) error {
	return d.sendEnvelope(streaming.TypeNotice, streaming.NoticePayload{Message: msg})
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (d *Display) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	d.conn.send(data)
	return nil
}

func latLng(ll geo.LatLng) streaming.LatLng {
	return streaming.LatLng{Lat: ll.Lat, Lng: ll.Lng}
}

func viewportPayload(v geo.Viewport) streaming.ViewportPayload {
	return streaming.ViewportPayload{
		Center: latLng(v.Center),
		Zoom:   v.Zoom,
		Width:  v.Width,
		Height: v.Height,
	}
}
