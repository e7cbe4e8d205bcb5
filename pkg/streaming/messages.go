// Package streaming defines the messages exchanged with a map display
// client over WebSocket.
package streaming

import "encoding/json"

// Outbound message types.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeAddMarker    = "add_marker"
	TypeMoveMarker   = "move_marker"
	TypeFitView      = "fit_view"
	TypeNotice       = "notice"
)

// Inbound message types.
const (
	TypeAck         = "ack"
	TypePointerDown = "pointer_down"
	TypePointerMove = "pointer_move"
	TypePointerUp   = "pointer_up"
	TypeResize      = "resize"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the display's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ViewportPayload carries the map view for start_session and fit_view.
type ViewportPayload struct {
	Center LatLng `json:"center"`
	Zoom   int    `json:"zoom"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// MarkerPayload carries a full marker for add_marker.
type MarkerPayload struct {
	SoldierID int    `json:"soldierId"`
	Position  LatLng `json:"position"`
	Color     string `json:"color"`
	Tooltip   string `json:"tooltip"`
	Size      int    `json:"size"`
}

// MovePayload carries a new marker position for move_marker.
type MovePayload struct {
	SoldierID int    `json:"soldierId"`
	Position  LatLng `json:"position"`
}

// NoticePayload is a one-shot message for the user.
type NoticePayload struct {
	Message string `json:"message"`
}

// PointerPayload is a mouse event in screen pixels. Button 0 is primary.
type PointerPayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button int     `json:"button"`
}

// ResizePayload reports the display's map size in pixels.
type ResizePayload struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}
