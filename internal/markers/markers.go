// Package markers keeps the on-screen markers, one per soldier, with a
// spatial index for hit testing.
package markers

import (
	"image/color"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/OCAP2/fieldmap/internal/geo"
)

const (
	dimensions  = 2
	minChildren = 2
	maxChildren = 8
	// tolerance gives point markers a non-degenerate box in the index.
	tolerance = 1e-9
)

// Marker is the on-screen representation of a soldier's current position.
type Marker struct {
	SoldierID int        `json:"soldierId"`
	Position  geo.LatLng `json:"position"`
	Color     string     `json:"color"`
	Tooltip   string     `json:"tooltip"`
	Size      int        `json:"size"`

	rgba color.RGBA
	seq  uint64
	rect *rtreego.Rect
}

// New builds a marker for a soldier.
func New(soldierID int, pos geo.LatLng, c color.RGBA, colorName, tooltip string, size int) *Marker {
	return &Marker{
		SoldierID: soldierID,
		Position:  pos,
		Color:     colorName,
		Tooltip:   tooltip,
		Size:      size,
		rgba:      c,
	}
}

// RGBA returns the fill color of the marker.
func (m *Marker) RGBA() color.RGBA { return m.rgba }

// Bounds implements rtreego.Spatial.
func (m *Marker) Bounds() *rtreego.Rect { return m.rect }

func (m *Marker) index() {
	m.rect = rtreego.Point{m.Position.Lat, m.Position.Lng}.ToRect(tolerance)
}

// Layer maps soldier ids to markers. It is owned by the UI loop and is not
// safe for concurrent use.
type Layer struct {
	markers map[int]*Marker
	tree    *rtreego.Rtree
	nextSeq uint64
}

// NewLayer creates an empty Layer
func NewLayer() *Layer {
	return &Layer{
		markers: make(map[int]*Marker),
		tree:    rtreego.NewTree(dimensions, minChildren, maxChildren),
	}
}

// Get retrieves a marker by soldier id
func (l *Layer) Get(soldierID int) (*Marker, bool) {
	m, ok := l.markers[soldierID]
	return m, ok
}

// Add registers m. It returns false and leaves the layer unchanged when a
// marker for the same soldier already exists.
func (l *Layer) Add(m *Marker) bool {
	if _, exists := l.markers[m.SoldierID]; exists {
		return false
	}
	l.nextSeq++
	m.seq = l.nextSeq
	m.index()
	l.markers[m.SoldierID] = m
	l.tree.Insert(m)
	return true
}

// Move relocates the soldier's marker. It returns false when there is none.
func (l *Layer) Move(soldierID int, pos geo.LatLng) (*Marker, bool) {
	m, ok := l.markers[soldierID]
	if !ok {
		return nil, false
	}
	l.tree.Delete(m)
	m.Position = pos
	m.index()
	l.tree.Insert(m)
	return m, true
}

// Len returns the number of markers.
func (l *Layer) Len() int { return len(l.markers) }

// All returns the markers in creation order.
func (l *Layer) All() []*Marker {
	out := make([]*Marker, 0, len(l.markers))
	for _, m := range l.markers {
		out = append(out, m)
	}
	sortBySeq(out)
	return out
}

// Positions returns the current position of every marker.
func (l *Layer) Positions() []geo.LatLng {
	out := make([]geo.LatLng, 0, len(l.markers))
	for _, m := range l.All() {
		out = append(out, m.Position)
	}
	return out
}

// Within returns the markers inside the rectangle spanned by sw and ne,
// in creation order.
func (l *Layer) Within(sw, ne geo.LatLng) []*Marker {
	lengths := []float64{ne.Lat - sw.Lat, ne.Lng - sw.Lng}
	if lengths[0] <= 0 || lengths[1] <= 0 {
		return nil
	}
	rect, err := rtreego.NewRect(rtreego.Point{sw.Lat, sw.Lng}, lengths)
	if err != nil {
		return nil
	}

	var out []*Marker
	for _, s := range l.tree.SearchIntersect(rect) {
		m := s.(*Marker)
		// The index box is padded; keep only true containment.
		if m.Position.Lat >= sw.Lat && m.Position.Lat <= ne.Lat &&
			m.Position.Lng >= sw.Lng && m.Position.Lng <= ne.Lng {
			out = append(out, m)
		}
	}
	sortBySeq(out)
	return out
}

// HitTest returns the earliest-created marker whose size-by-size pixel box
// contains px.
func (l *Layer) HitTest(v geo.Viewport, px geo.Pixel, size int) (*Marker, bool) {
	sw, ne := v.PixelBox(px, float64(size))
	hits := l.Within(sw, ne)
	if len(hits) == 0 {
		return nil, false
	}
	return hits[0], true
}

func sortBySeq(ms []*Marker) {
	sort.Slice(ms, func(i, j int) bool { return ms[i].seq < ms[j].seq })
}
