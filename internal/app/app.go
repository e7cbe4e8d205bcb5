// Package app wires the map session together: storage, display, the UI
// loop, replay and pointer handling.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/OCAP2/fieldmap/internal/config"
	"github.com/OCAP2/fieldmap/internal/dispatcher"
	"github.com/OCAP2/fieldmap/internal/display"
	"github.com/OCAP2/fieldmap/internal/display/memory"
	wsdisplay "github.com/OCAP2/fieldmap/internal/display/websocket"
	"github.com/OCAP2/fieldmap/internal/document"
	"github.com/OCAP2/fieldmap/internal/geo"
	"github.com/OCAP2/fieldmap/internal/interaction"
	"github.com/OCAP2/fieldmap/internal/logging"
	"github.com/OCAP2/fieldmap/internal/mainthread"
	"github.com/OCAP2/fieldmap/internal/reconcile"
	"github.com/OCAP2/fieldmap/internal/scene"
	"github.com/OCAP2/fieldmap/internal/storage"
	"github.com/OCAP2/fieldmap/internal/storage/factory"
	"github.com/OCAP2/fieldmap/internal/telemetry"
	"github.com/OCAP2/fieldmap/pkg/streaming"
)

const loopQueueSize = 256

// Options is everything a session is configured with.
type Options struct {
	DataFile string
	Storage  config.StorageConfig
	Replay   config.ReplayConfig
	Viewport config.ViewportConfig
	Display  config.DisplayConfig
	Influx   config.InfluxConfig
}

// OptionsFromConfig reads Options from the loaded configuration.
func OptionsFromConfig() Options {
	return Options{
		DataFile: config.GetString("dataFile"),
		Storage:  config.GetStorageConfig(),
		Replay:   config.GetReplayConfig(),
		Viewport: config.GetViewportConfig(),
		Display:  config.GetDisplayConfig(),
		Influx:   config.GetInfluxConfig(),
	}
}

// MarkerState is a snapshot of one marker.
type MarkerState struct {
	SoldierID int
	Name      string
	Color     string
	Position  geo.LatLng
}

// App is one map session.
type App struct {
	opts Options
	log  *slog.Logger
	zlog zerolog.Logger

	// Headless replaces the configured display when set.
	Headless *memory.Display

	loop       *mainthread.Loop
	loopCancel context.CancelFunc
	loopDone   chan struct{}

	backend    storage.Backend
	display    display.Display
	telemetry  *telemetry.Manager
	dispatcher *dispatcher.Dispatcher
	scene      *scene.Scene
	reconciler *reconcile.Reconciler
	handler    *interaction.Handler

	// ready is set once handlers are registered; display callbacks ignore
	// traffic before that.
	ready atomic.Pointer[dispatcher.Dispatcher]

	closeOnce sync.Once
}

// New creates a session. Nothing is opened until Open.
func New(opts Options, log *slog.Logger, zlog zerolog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	return &App{
		opts: opts,
		log:  log,
		zlog: zlog,
		loop: mainthread.New(loopQueueSize),
	}
}

func (a *App) initialView() geo.Viewport {
	v := a.opts.Viewport
	return geo.Viewport{
		Center:  geo.LatLng{Lat: v.Lat, Lng: v.Lng},
		Zoom:    v.Zoom,
		Width:   v.Width,
		Height:  v.Height,
		MinZoom: v.MinZoom,
		MaxZoom: v.MaxZoom,
	}
}

// Open starts the UI loop, connects the display and storage and loads the
// document. A document that cannot be loaded is reported through a single
// notice and fails Open.
func (a *App) Open(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(context.Background())
	a.loopCancel = cancel
	a.loopDone = make(chan struct{})
	go func() {
		defer close(a.loopDone)
		_ = a.loop.Run(loopCtx)
	}()

	if a.opts.Influx.Enabled {
		a.telemetry = telemetry.NewManager(a.opts.Influx, a.zlog)
		if err := a.telemetry.Connect(ctx); err != nil {
			a.log.Warn("Telemetry disabled", "error", err)
			a.telemetry = nil
		}
	}

	backend, err := factory.NewBackend(a.opts.Storage, a.opts.DataFile, factory.Deps{Log: a.log, ZLog: a.zlog})
	if err != nil {
		return err
	}
	a.backend = backend
	if err := a.backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	view := a.initialView()
	d, err := a.newDisplay()
	if err != nil {
		return err
	}
	a.display = d
	if err := a.display.Init(view); err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}

	root, err := reconcile.Load(ctx, a.backend, a.location(), func(msg string) {
		a.log.Error(msg)
		_ = a.display.Notice(msg)
	})
	if err != nil {
		return err
	}

	doc := document.New(root)
	a.scene = scene.New(doc, view, a.display, a.opts.Viewport.MarkerPix, a.log)

	var recorder reconcile.Recorder
	if a.telemetry != nil {
		recorder = a.telemetry
	}
	a.reconciler, err = reconcile.New(a.scene, a.loop, reconcile.Options{
		Interval: a.opts.Replay.Interval,
		Order:    a.opts.Replay.Order,
		Recorder: recorder,
	})
	if err != nil {
		return err
	}
	a.handler = interaction.New(a.scene, a.backend, recorder)

	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(a.zlog))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	a.handler.Register(loopCtx, a.dispatcher, a.loop)
	a.ready.Store(a.dispatcher)

	a.log.Info("Session opened", "source", a.location(),
		"soldiers", len(root.Soldiers), "updates", len(root.PositionUpdates))
	return nil
}

func (a *App) newDisplay() (display.Display, error) {
	if a.Headless != nil {
		return a.Headless, nil
	}
	if a.opts.Display.URL == "" {
		return memory.New(a.log), nil
	}

	ws := wsdisplay.New(wsdisplay.Config{URL: a.opts.Display.URL, Secret: a.opts.Display.Secret}, a.log)
	ws.OnMessage(a.handleDisplayMessage)
	ws.OnReconnect(func() {
		if a.ready.Load() == nil {
			return
		}
		err := a.loop.Post(context.Background(), func(context.Context) {
			a.scene.Resend()
		})
		if err != nil {
			a.log.Warn("Failed to resend markers after reconnect", "error", err)
		}
	})
	return ws, nil
}

func (a *App) handleDisplayMessage(env streaming.Envelope) {
	d := a.ready.Load()
	if d == nil {
		return
	}
	if _, err := d.Dispatch(dispatcher.FromEnvelope(env, time.Now())); err != nil {
		a.log.Debug("Display message not handled", "type", env.Type, "error", err)
	}
}

func (a *App) location() string {
	if n, ok := a.backend.(storage.Named); ok {
		return n.Location()
	}
	return a.opts.DataFile
}

// Replay runs the simulation until the records are exhausted or ctx is
// cancelled.
func (a *App) Replay(ctx context.Context) error {
	if a.reconciler == nil {
		return errors.New("session not open")
	}
	return a.reconciler.Replay(ctx)
}

// Run opens the session, replays in the background and serves pointer
// events until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.Open(ctx); err != nil {
		return err
	}

	replayDone := make(chan error, 1)
	go func() { replayDone <- a.Replay(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-replayDone:
			if err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("Replay stopped", "error", err)
			}
			replayDone = nil
		}
	}
}

// Correct records a new position for a soldier as if its marker had been
// dragged there.
func (a *App) Correct(ctx context.Context, soldierID int, pos geo.LatLng) error {
	if a.handler == nil {
		return errors.New("session not open")
	}
	var err error
	if ierr := a.loop.Invoke(ctx, func(loopCtx context.Context) {
		_, err = a.handler.Correct(loopCtx, soldierID, pos)
	}); ierr != nil {
		return ierr
	}
	return err
}

// Markers returns every marker in creation order.
func (a *App) Markers(ctx context.Context) ([]MarkerState, error) {
	if a.scene == nil {
		return nil, errors.New("session not open")
	}
	var out []MarkerState
	err := a.loop.Invoke(ctx, func(context.Context) {
		for _, m := range a.scene.Layer.All() {
			st := MarkerState{SoldierID: m.SoldierID, Color: m.Color, Position: m.Position}
			if s, ok := a.scene.Doc.Soldier(m.SoldierID); ok {
				st.Name = s.FullName()
			}
			out = append(out, st)
		}
	})
	return out, err
}

// Close releases everything Open acquired. It is safe to call after a
// failed Open.
func (a *App) Close() error {
	var errs []error
	a.closeOnce.Do(func() {
		if a.dispatcher != nil {
			a.dispatcher.Close()
		}
		if a.display != nil {
			errs = append(errs, a.display.Close())
		}
		if a.loopCancel != nil {
			a.loopCancel()
			<-a.loopDone
		}
		if a.backend != nil {
			errs = append(errs, a.backend.Close())
		}
		if a.telemetry != nil {
			errs = append(errs, a.telemetry.Close())
		}
	})
	return errors.Join(errs...)
}
