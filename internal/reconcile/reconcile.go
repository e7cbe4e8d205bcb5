// Package reconcile replays position update records against the markers on
// the map.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/OCAP2/fieldmap/internal/geo"
	"github.com/OCAP2/fieldmap/internal/mainthread"
	"github.com/OCAP2/fieldmap/internal/markers"
	"github.com/OCAP2/fieldmap/internal/scene"
	"github.com/OCAP2/fieldmap/internal/storage"
	"github.com/OCAP2/fieldmap/internal/telemetry"
	"github.com/OCAP2/fieldmap/pkg/core"
)

// DefaultInterval is the pause between two replayed records.
const DefaultInterval = 2 * time.Second

// Replay orders.
const (
	OrderFile      = "file"
	OrderTimestamp = "timestamp"
)

// Recorder receives every applied position.
type Recorder interface {
	RecordPosition(ctx context.Context, soldierID int, pos geo.LatLng, at time.Time, source string) error
}

// Options tunes a Reconciler.
type Options struct {
	Interval time.Duration
	Order    string
	Recorder Recorder
}

// Result counts what one record did to the map.
type Result struct {
	Created  int
	Moved    int
	Orphaned int
}

// Reconciler applies update records to a scene.
type Reconciler struct {
	scene *scene.Scene
	loop  *mainthread.Loop
	opts  Options
	inst  *instruments
}

// New creates a reconciler. A zero Interval uses DefaultInterval; a
// negative one disables pacing.
func New(s *scene.Scene, loop *mainthread.Loop, opts Options) (*Reconciler, error) {
	switch opts.Order {
	case "":
		opts.Order = OrderFile
	case OrderFile, OrderTimestamp:
	default:
		return nil, fmt.Errorf("unknown replay order %q", opts.Order)
	}
	if opts.Interval == 0 {
		opts.Interval = DefaultInterval
	}
	inst, err := newInstruments()
	if err != nil {
		return nil, fmt.Errorf("failed to create instruments: %w", err)
	}
	return &Reconciler{scene: s, loop: loop, opts: opts, inst: inst}, nil
}

// Apply moves or creates the marker for every position in u and then
// refits the view. It must run on the UI loop.
func (r *Reconciler) Apply(ctx context.Context, u core.UpdateInfo) Result {
	var res Result
	s := r.scene

	for _, p := range u.Observations() {
		id := p.Soldier()
		lat, lng := p.LatLng()
		pos := geo.LatLng{Lat: lat, Lng: lng}

		if m, ok := s.Layer.Move(id, pos); ok {
			res.Moved++
			if err := s.Display.MoveMarker(m); err != nil {
				s.Log.Warn("Failed to move marker on display", "soldierId", id, "error", err)
			}
		} else if soldier, ok := s.Doc.Soldier(id); ok {
			m := markers.New(id, pos, soldier.Color.Value(), soldier.Color.String(),
				Tooltip(soldier, s.Doc.LatestTimestamp(id)), s.MarkerSize)
			s.Layer.Add(m)
			res.Created++
			if err := s.Display.AddMarker(m); err != nil {
				s.Log.Warn("Failed to add marker on display", "soldierId", id, "error", err)
			}
		} else {
			res.Orphaned++
			s.Log.Debug("Ignoring position for unknown soldier", "soldierId", id)
			continue
		}

		if r.opts.Recorder != nil {
			if err := r.opts.Recorder.RecordPosition(ctx, id, pos, u.At().Time, telemetry.SourceReplay); err != nil {
				s.Log.Warn("Failed to record position", "soldierId", id, "error", err)
			}
		}
	}

	s.Refit()

	r.inst.created.Add(ctx, int64(res.Created))
	r.inst.moved.Add(ctx, int64(res.Moved))
	r.inst.orphaned.Add(ctx, int64(res.Orphaned))
	r.inst.applied.Add(ctx, 1)
	return res
}

// Replay applies the records present when it starts, pausing between
// them. Records appended while it runs are not replayed. It returns nil
// when the records are exhausted and ctx.Err() when cancelled.
func (r *Reconciler) Replay(ctx context.Context) error {
	var updates []core.PositionUpdate
	if err := r.loop.Invoke(ctx, func(context.Context) {
		updates = r.scene.Doc.Updates()
	}); err != nil {
		return err
	}

	if r.opts.Order == OrderTimestamp {
		slices.SortStableFunc(updates, func(a, b core.PositionUpdate) int {
			return a.Timestamp.Compare(b.Timestamp.Time)
		})
	}

	r.scene.Log.Info("Replaying position updates", "records", len(updates), "order", r.opts.Order)

	for i, u := range updates {
		if i > 0 && r.opts.Interval > 0 {
			timer := time.NewTimer(r.opts.Interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		var res Result
		if err := r.loop.Invoke(ctx, func(loopCtx context.Context) {
			res = r.Apply(loopCtx, u)
		}); err != nil {
			return err
		}
		r.scene.Log.Debug("Applied update", "record", i, "timestamp", u.Timestamp.String(),
			"created", res.Created, "moved", res.Moved, "orphaned", res.Orphaned)
	}

	r.scene.Log.Info("Replay finished", "records", len(updates))
	return nil
}

// Load reads the document through backend. On failure it shows a single
// notice and returns the error; the caller aborts the simulation.
func Load(ctx context.Context, backend storage.Backend, location string, notify func(string)) (*core.RootObject, error) {
	root, err := backend.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		notify(fmt.Sprintf("%s not found.", location))
		return nil, err
	case err != nil:
		notify(fmt.Sprintf("Error deserializing %s: %v", location, err))
		return nil, err
	}
	return root, nil
}

// Tooltip is the hover text of a soldier's marker.
func Tooltip(s core.SoldierInfo, latest core.Timestamp) string {
	return fmt.Sprintf("Name: %s=--> Latest date: %s\n Rank: %s\n Country: %s\n TrainingInfo: %s",
		s.FullName(), latest.String(), s.SoldierRank(), s.SoldierCountry(), s.Training())
}
