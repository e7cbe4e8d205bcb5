package interaction

import (
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/fieldmap/internal/dispatcher"
	"github.com/OCAP2/fieldmap/internal/display/memory"
	"github.com/OCAP2/fieldmap/internal/document"
	"github.com/OCAP2/fieldmap/internal/geo"
	"github.com/OCAP2/fieldmap/internal/mainthread"
	"github.com/OCAP2/fieldmap/internal/markers"
	"github.com/OCAP2/fieldmap/internal/scene"
	"github.com/OCAP2/fieldmap/internal/storage/jsonfile"
	"github.com/OCAP2/fieldmap/pkg/core"
	"github.com/OCAP2/fieldmap/pkg/streaming"
)

type fakeSaver struct {
	mu    sync.Mutex
	saves int
	last  int
	err   error
}

func (f *fakeSaver) Save(_ context.Context, root *core.RootObject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.last = len(root.PositionUpdates)
	return f.err
}

func (f *fakeSaver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

var fixedNow = time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

func setup(t *testing.T, saver Saver) (*Handler, *scene.Scene, *memory.Display) {
	t.Helper()
	root := &core.RootObject{
		Soldiers: []core.Soldier{
			{ID: 1, FirstName: "John", LastName: "Doe", Color: core.Color(color.RGBA{R: 0xFF, A: 0xFF})},
			{ID: 2, FirstName: "Anna", LastName: "Berg", Color: core.Color(color.RGBA{B: 0xFF, A: 0xFF})},
		},
		PositionUpdates: []core.PositionUpdate{
			{Timestamp: core.NewTimestamp(fixedNow.Add(-time.Hour)), Positions: []core.Position{
				{SoldierID: 1, Latitude: 32.08, Longitude: 34.78},
			}},
		},
	}
	d := memory.New(slog.Default())
	view := geo.Viewport{Center: geo.LatLng{Lat: 32.08, Lng: 34.78}, Zoom: 14, Width: 800, Height: 600, MinZoom: 2, MaxZoom: 17}
	s := scene.New(document.New(root), view, d, 30, slog.Default())
	s.Layer.Add(markers.New(1, geo.LatLng{Lat: 32.08, Lng: 34.78}, color.RGBA{R: 0xFF, A: 0xFF}, "Red", "", 30))

	h := New(s, saver, nil)
	h.now = func() time.Time { return fixedNow }
	return h, s, d
}

func TestPress_OnMarker(t *testing.T) {
	h, s, _ := setup(t, &fakeSaver{})
	px := s.View.ToScreen(geo.LatLng{Lat: 32.08, Lng: 34.78})

	assert.True(t, h.Press(geo.Pixel{X: px.X + 10, Y: px.Y - 10}, PrimaryButton))
	id, ok := h.Dragging()
	assert.True(t, ok)
	assert.Equal(t, 1, id)
}

func TestPress_Misses(t *testing.T) {
	h, s, _ := setup(t, &fakeSaver{})
	px := s.View.ToScreen(geo.LatLng{Lat: 32.08, Lng: 34.78})

	assert.False(t, h.Press(geo.Pixel{X: px.X + 16, Y: px.Y}, PrimaryButton))
	assert.False(t, h.Press(px, 2))
	_, ok := h.Dragging()
	assert.False(t, ok)
}

func TestPress_OverlapPicksEarliestMarker(t *testing.T) {
	h, s, _ := setup(t, &fakeSaver{})
	s.Layer.Add(markers.New(2, geo.LatLng{Lat: 32.08, Lng: 34.78}, color.RGBA{B: 0xFF, A: 0xFF}, "Blue", "", 30))

	require.True(t, h.Press(s.View.ToScreen(geo.LatLng{Lat: 32.08, Lng: 34.78}), PrimaryButton))
	id, _ := h.Dragging()
	assert.Equal(t, 1, id)
}

func TestDrag_AppendsExactlyOneRecordAndSaves(t *testing.T) {
	saver := &fakeSaver{}
	h, s, d := setup(t, saver)
	start := s.View.ToScreen(geo.LatLng{Lat: 32.08, Lng: 34.78})

	require.True(t, h.Press(start, PrimaryButton))
	assert.True(t, h.Move(geo.Pixel{X: start.X + 20, Y: start.Y}))
	assert.True(t, h.Move(geo.Pixel{X: start.X + 40, Y: start.Y + 15}))
	assert.Equal(t, 0, saver.count(), "moves never save")

	end := geo.Pixel{X: start.X + 50, Y: start.Y + 20}
	u, ended, err := h.Release(context.Background(), end)
	require.NoError(t, err)
	require.True(t, ended)

	want := s.View.ToLatLng(end)
	updates := s.Doc.Updates()
	require.Len(t, updates, 2)
	last := updates[1]
	require.Len(t, last.Positions, 1)
	assert.Equal(t, 1, last.Positions[0].SoldierID)
	assert.InDelta(t, want.Lat, last.Positions[0].Latitude, 1e-9)
	assert.InDelta(t, want.Lng, last.Positions[0].Longitude, 1e-9)
	assert.True(t, last.Timestamp.Equal(fixedNow))
	assert.False(t, last.Timestamp.Zoneless())
	assert.Equal(t, u, last)

	assert.Equal(t, 1, saver.count())
	assert.Equal(t, 2, saver.last)

	m, _ := s.Layer.Get(1)
	assert.InDelta(t, want.Lat, m.Position.Lat, 1e-9)
	assert.InDelta(t, want.Lat, d.Markers()[1].Lat, 1e-9)

	_, dragging := h.Dragging()
	assert.False(t, dragging)
}

func TestRelease_WithoutPress(t *testing.T) {
	saver := &fakeSaver{}
	h, s, _ := setup(t, saver)

	_, ended, err := h.Release(context.Background(), geo.Pixel{X: 400, Y: 300})
	require.NoError(t, err)
	assert.False(t, ended)
	assert.Len(t, s.Doc.Updates(), 1)
	assert.Equal(t, 0, saver.count())
}

func TestMove_WithoutPress(t *testing.T) {
	h, s, d := setup(t, &fakeSaver{})
	assert.False(t, h.Move(geo.Pixel{X: 10, Y: 10}))
	m, _ := s.Layer.Get(1)
	assert.Equal(t, geo.LatLng{Lat: 32.08, Lng: 34.78}, m.Position)
	assert.Empty(t, d.Events())
}

func TestRelease_SaveFailureKeepsRecord(t *testing.T) {
	saver := &fakeSaver{err: errors.New("read-only file system")}
	h, s, d := setup(t, saver)
	start := s.View.ToScreen(geo.LatLng{Lat: 32.08, Lng: 34.78})

	require.True(t, h.Press(start, PrimaryButton))
	_, ended, err := h.Release(context.Background(), start)
	assert.True(t, ended)
	require.Error(t, err)

	assert.Len(t, s.Doc.Updates(), 2)
	require.Len(t, d.Notices(), 1)
	assert.Contains(t, d.Notices()[0], "read-only file system")
}

func TestCorrect_UnknownSoldier(t *testing.T) {
	saver := &fakeSaver{}
	h, s, _ := setup(t, saver)

	_, err := h.Correct(context.Background(), 42, geo.LatLng{Lat: 1, Lng: 1})
	assert.ErrorIs(t, err, document.ErrUnknownSoldier)
	assert.Len(t, s.Doc.Updates(), 1)
	assert.Equal(t, 0, saver.count())
}

func TestCorrect_SoldierWithoutMarker(t *testing.T) {
	saver := &fakeSaver{}
	h, s, _ := setup(t, saver)

	_, err := h.Correct(context.Background(), 2, geo.LatLng{Lat: 1, Lng: 2})
	require.NoError(t, err)
	assert.Len(t, s.Doc.Updates(), 2)
	_, ok := s.Layer.Get(2)
	assert.False(t, ok)
	assert.Equal(t, 1, saver.count())
}

func TestCorrect_RewritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SoldierData.json")
	backend := jsonfile.New(path)
	h, _, _ := setup(t, backend)

	_, err := h.Correct(context.Background(), 1, geo.LatLng{Lat: 32.1, Lng: 34.9})
	require.NoError(t, err)

	root, err := backend.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, root.PositionUpdates, 2)
	assert.Equal(t, "2024-06-01T08:30:00Z", root.PositionUpdates[1].Timestamp.String())
	assert.Equal(t, []core.Position{{SoldierID: 1, Latitude: 32.1, Longitude: 34.9}}, root.PositionUpdates[1].Positions)
}

func TestResize(t *testing.T) {
	h, s, _ := setup(t, &fakeSaver{})
	h.Resize(1280, 720)
	assert.Equal(t, 1280, s.View.Width)
	assert.Equal(t, 720, s.View.Height)

	h.Resize(0, 100)
	assert.Equal(t, 1280, s.View.Width)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func pointer(t *testing.T, kind string, p geo.Pixel) dispatcher.Event {
	t.Helper()
	payload, err := json.Marshal(streaming.PointerPayload{X: p.X, Y: p.Y})
	require.NoError(t, err)
	return dispatcher.FromEnvelope(streaming.Envelope{Type: kind, Payload: payload}, time.Now())
}

func TestRegister_PointerEventsDriveDrag(t *testing.T) {
	saver := &fakeSaver{}
	h, s, _ := setup(t, saver)

	ctx, cancel := context.WithCancel(context.Background())
	loop := mainthread.New(16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	d, err := dispatcher.New(nopLogger{})
	require.NoError(t, err)
	defer d.Close()
	h.Register(ctx, d, loop)

	for _, cmd := range []string{streaming.TypePointerDown, streaming.TypePointerMove, streaming.TypePointerUp, streaming.TypeResize} {
		assert.True(t, d.HasHandler(cmd), cmd)
	}

	start := s.View.ToScreen(geo.LatLng{Lat: 32.08, Lng: 34.78})
	end := geo.Pixel{X: start.X + 30, Y: start.Y}
	_, err = d.Dispatch(pointer(t, streaming.TypePointerDown, start))
	require.NoError(t, err)
	_, err = d.Dispatch(pointer(t, streaming.TypePointerMove, end))
	require.NoError(t, err)
	_, err = d.Dispatch(pointer(t, streaming.TypePointerUp, end))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return saver.count() == 1 }, time.Second, 5*time.Millisecond)

	var n int
	require.NoError(t, loop.Invoke(ctx, func(context.Context) { n = len(s.Doc.Updates()) }))
	assert.Equal(t, 2, n)

	_, err = d.Dispatch(dispatcher.Event{Command: streaming.TypePointerDown, Payload: json.RawMessage(`{"x":`)})
	assert.Error(t, err)
}
