package reconcile

import (
	"context"
	"image/color"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/fieldmap/internal/display/memory"
	"github.com/OCAP2/fieldmap/internal/document"
	"github.com/OCAP2/fieldmap/internal/geo"
	"github.com/OCAP2/fieldmap/internal/mainthread"
	"github.com/OCAP2/fieldmap/internal/scene"
	"github.com/OCAP2/fieldmap/internal/storage"
	"github.com/OCAP2/fieldmap/internal/storage/jsonfile"
	"github.com/OCAP2/fieldmap/internal/storage/storagetest"
	"github.com/OCAP2/fieldmap/pkg/core"
)

type recorded struct {
	id     int
	pos    geo.LatLng
	source string
}

type fakeRecorder struct {
	mu   sync.Mutex
	recs []recorded
}

func (f *fakeRecorder) RecordPosition(_ context.Context, id int, pos geo.LatLng, _ time.Time, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, recorded{id, pos, source})
	return nil
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}

func startLoop(t *testing.T) (*mainthread.Loop, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	loop := mainthread.New(16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loop, ctx
}

func newScene(root *core.RootObject) (*scene.Scene, *memory.Display) {
	d := memory.New(slog.Default())
	view := geo.Viewport{Width: 1024, Height: 768, Zoom: 2, MinZoom: 2, MaxZoom: 17}
	return scene.New(document.New(root), view, d, 30, slog.Default()), d
}

func at(sec int) core.Timestamp {
	return core.NewTimestamp(time.Date(2024, 5, 1, 12, 0, sec, 0, time.UTC))
}

func roster() []core.Soldier {
	return []core.Soldier{
		{ID: 1, FirstName: "John", LastName: "Doe", Rank: "Sergeant", Country: "USA",
			TrainingInfo: "Infantry", Color: core.Color(color.RGBA{R: 0xFF, A: 0xFF})},
		{ID: 2, FirstName: "Anna", LastName: "Berg", Rank: "Lieutenant", Country: "Sweden",
			TrainingInfo: "Recon", Color: core.Color(color.RGBA{R: 0x1A, G: 0x2B, B: 0x3C, A: 0xFF})},
	}
}

func TestNew_Options(t *testing.T) {
	s, _ := newScene(&core.RootObject{})
	r, err := New(s, mainthread.New(1), Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, r.opts.Interval)
	assert.Equal(t, OrderFile, r.opts.Order)

	_, err = New(s, mainthread.New(1), Options{Order: "random"})
	assert.Error(t, err)
}

func TestApply_CreatesThenMoves(t *testing.T) {
	s, d := newScene(&core.RootObject{Soldiers: roster()})
	r, err := New(s, mainthread.New(1), Options{})
	require.NoError(t, err)

	res := r.Apply(context.Background(), core.PositionUpdate{Timestamp: at(0), Positions: []core.Position{
		{SoldierID: 1, Latitude: 32.08, Longitude: 34.78},
		{SoldierID: 2, Latitude: 32.1, Longitude: 34.8},
	}})
	assert.Equal(t, Result{Created: 2}, res)

	res = r.Apply(context.Background(), core.PositionUpdate{Timestamp: at(2), Positions: []core.Position{
		{SoldierID: 1, Latitude: 32.09, Longitude: 34.79},
	}})
	assert.Equal(t, Result{Moved: 1}, res)

	m, ok := s.Layer.Get(1)
	require.True(t, ok)
	assert.Equal(t, geo.LatLng{Lat: 32.09, Lng: 34.79}, m.Position)
	assert.Equal(t, "Red", m.Color)
	assert.Equal(t, 30, m.Size)

	m2, _ := s.Layer.Get(2)
	assert.Equal(t, "#1A2B3C", m2.Color)

	kinds := []string{}
	for _, e := range d.Events() {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []string{
		memory.EventAdd, memory.EventAdd, memory.EventFit,
		memory.EventMove, memory.EventFit,
	}, kinds)
	assert.Equal(t, s.View, d.Viewport())
}

func TestApply_OrphanNeverCreatesMarker(t *testing.T) {
	s, d := newScene(&core.RootObject{Soldiers: roster()})
	rec := &fakeRecorder{}
	r, err := New(s, mainthread.New(1), Options{Recorder: rec})
	require.NoError(t, err)

	res := r.Apply(context.Background(), core.PositionUpdate{Timestamp: at(0), Positions: []core.Position{
		{SoldierID: 99, Latitude: 1, Longitude: 1},
		{SoldierID: 1, Latitude: 2, Longitude: 2},
	}})

	assert.Equal(t, Result{Created: 1, Orphaned: 1}, res)
	_, ok := s.Layer.Get(99)
	assert.False(t, ok)
	assert.NotContains(t, d.Markers(), 99)
	assert.Equal(t, 1, rec.count())
}

func TestApply_DuplicateInRecordMoves(t *testing.T) {
	s, _ := newScene(&core.RootObject{Soldiers: roster()})
	r, err := New(s, mainthread.New(1), Options{})
	require.NoError(t, err)

	res := r.Apply(context.Background(), core.PositionUpdate{Timestamp: at(0), Positions: []core.Position{
		{SoldierID: 1, Latitude: 1, Longitude: 1},
		{SoldierID: 1, Latitude: 3, Longitude: 3},
	}})
	assert.Equal(t, Result{Created: 1, Moved: 1}, res)
	assert.Equal(t, 1, s.Layer.Len())
}

func TestApply_TooltipUsesLatestTimestamp(t *testing.T) {
	root := &core.RootObject{
		Soldiers: roster(),
		PositionUpdates: []core.PositionUpdate{
			{Timestamp: at(5), Positions: []core.Position{{SoldierID: 1, Latitude: 1, Longitude: 1}}},
			{Timestamp: at(9), Positions: []core.Position{{SoldierID: 1, Latitude: 2, Longitude: 2}}},
		},
	}
	s, _ := newScene(root)
	r, err := New(s, mainthread.New(1), Options{})
	require.NoError(t, err)

	r.Apply(context.Background(), root.PositionUpdates[0])
	m, ok := s.Layer.Get(1)
	require.True(t, ok)
	assert.Equal(t,
		"Name: John Doe=--> Latest date: 2024-05-01T12:00:09Z\n Rank: Sergeant\n Country: USA\n TrainingInfo: Infantry",
		m.Tooltip)
}

func TestReplay_ConvergesToLatest(t *testing.T) {
	loop, ctx := startLoop(t)
	root := &core.RootObject{
		Soldiers: roster(),
		PositionUpdates: []core.PositionUpdate{
			{Timestamp: at(0), Positions: []core.Position{
				{SoldierID: 1, Latitude: 10, Longitude: 10},
				{SoldierID: 2, Latitude: 20, Longitude: 20},
			}},
			{Timestamp: at(1), Positions: []core.Position{{SoldierID: 1, Latitude: 11, Longitude: 11}}},
			{Timestamp: at(2), Positions: []core.Position{{SoldierID: 2, Latitude: 22, Longitude: 22}}},
		},
	}
	s, d := newScene(root)
	rec := &fakeRecorder{}
	r, err := New(s, loop, Options{Interval: -1, Recorder: rec})
	require.NoError(t, err)

	require.NoError(t, r.Replay(ctx))

	assert.Equal(t, map[int]geo.LatLng{
		1: {Lat: 11, Lng: 11},
		2: {Lat: 22, Lng: 22},
	}, d.Markers())
	assert.Equal(t, 4, rec.count())
}

func TestReplay_TimestampOrder(t *testing.T) {
	loop, ctx := startLoop(t)
	root := &core.RootObject{
		Soldiers: roster(),
		PositionUpdates: []core.PositionUpdate{
			{Timestamp: at(30), Positions: []core.Position{{SoldierID: 1, Latitude: 3, Longitude: 3}}},
			{Timestamp: at(10), Positions: []core.Position{{SoldierID: 1, Latitude: 1, Longitude: 1}}},
			{Timestamp: at(20), Positions: []core.Position{{SoldierID: 1, Latitude: 2, Longitude: 2}}},
		},
	}

	s, d := newScene(root)
	r, err := New(s, loop, Options{Interval: -1, Order: OrderTimestamp})
	require.NoError(t, err)
	require.NoError(t, r.Replay(ctx))
	assert.Equal(t, geo.LatLng{Lat: 3, Lng: 3}, d.Markers()[1])

	s, d = newScene(root)
	r, err = New(s, loop, Options{Interval: -1, Order: OrderFile})
	require.NoError(t, err)
	require.NoError(t, r.Replay(ctx))
	assert.Equal(t, geo.LatLng{Lat: 2, Lng: 2}, d.Markers()[1])
}

func TestReplay_Pacing(t *testing.T) {
	loop, ctx := startLoop(t)
	root := &core.RootObject{
		Soldiers: roster(),
		PositionUpdates: []core.PositionUpdate{
			{Timestamp: at(0), Positions: []core.Position{{SoldierID: 1, Latitude: 1, Longitude: 1}}},
			{Timestamp: at(1), Positions: []core.Position{{SoldierID: 1, Latitude: 2, Longitude: 2}}},
			{Timestamp: at(2), Positions: []core.Position{{SoldierID: 1, Latitude: 3, Longitude: 3}}},
		},
	}
	s, _ := newScene(root)
	r, err := New(s, loop, Options{Interval: 40 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, r.Replay(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestReplay_CancelStopsBetweenRecords(t *testing.T) {
	loop, loopCtx := startLoop(t)
	root := &core.RootObject{
		Soldiers: roster(),
		PositionUpdates: []core.PositionUpdate{
			{Timestamp: at(0), Positions: []core.Position{{SoldierID: 1, Latitude: 1, Longitude: 1}}},
			{Timestamp: at(1), Positions: []core.Position{{SoldierID: 1, Latitude: 2, Longitude: 2}}},
		},
	}
	s, d := newScene(root)
	r, err := New(s, loop, Options{Interval: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(loopCtx)
	errCh := make(chan error, 1)
	go func() { errCh <- r.Replay(ctx) }()

	require.Eventually(t, func() bool { return len(d.Markers()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("replay did not stop")
	}
	assert.Equal(t, geo.LatLng{Lat: 1, Lng: 1}, d.Markers()[1])
}

func TestReplay_IgnoresRecordsAppendedDuringReplay(t *testing.T) {
	loop, ctx := startLoop(t)
	root := &core.RootObject{
		Soldiers: roster(),
		PositionUpdates: []core.PositionUpdate{
			{Timestamp: at(0), Positions: []core.Position{{SoldierID: 1, Latitude: 1, Longitude: 1}}},
			{Timestamp: at(1), Positions: []core.Position{{SoldierID: 2, Latitude: 2, Longitude: 2}}},
		},
	}
	s, _ := newScene(root)
	rec := &fakeRecorder{}
	r, err := New(s, loop, Options{Interval: 50 * time.Millisecond, Recorder: rec})
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- r.Replay(ctx) }()

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, loop.Invoke(ctx, func(context.Context) {
		_, err := s.Doc.AppendCorrection(1, 5, 5, time.Now())
		assert.NoError(t, err)
	}))

	require.NoError(t, <-errCh)
	assert.Equal(t, 2, rec.count())
	assert.Len(t, root.PositionUpdates, 3)
}

func TestLoad_Notices(t *testing.T) {
	dir := t.TempDir()
	var notices []string
	notify := func(msg string) { notices = append(notices, msg) }

	missing := jsonfile.New(filepath.Join(dir, "SoldierData.json"))
	_, err := Load(context.Background(), missing, "SoldierData.json", notify)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, []string{"SoldierData.json not found."}, notices)

	good := jsonfile.New(filepath.Join(dir, "good.json"))
	require.NoError(t, good.Save(context.Background(), storagetest.Sample(t)))
	root, err := Load(context.Background(), good, "good.json", notify)
	require.NoError(t, err)
	assert.Len(t, root.Soldiers, 2)
	assert.Len(t, notices, 1)
}

func TestTooltip_NoUpdates(t *testing.T) {
	got := Tooltip(roster()[1], core.Timestamp{})
	assert.Contains(t, got, "Name: Anna Berg=--> Latest date: 0001-01-01T00:00:00Z")
	assert.Contains(t, got, "\n Rank: Lieutenant")
}
