package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/OCAP2/fieldmap/internal/app"
	"github.com/OCAP2/fieldmap/internal/config"
	"github.com/OCAP2/fieldmap/internal/display/memory"
	"github.com/OCAP2/fieldmap/internal/geo"
	"github.com/OCAP2/fieldmap/internal/storage/factory"
)

// BuildVersion can be set at build time via ldflags.
var BuildVersion = "0.0.1"

var (
	configDir string
	dataFile  string
	logLevel  string
	storeType string

	replayInterval time.Duration
	exportType     string
	exportPath     string

	rt *session
)

var rootCmd = &cobra.Command{
	Use:     "fieldmap",
	Short:   "Soldier position map",
	Long:    `Replays soldier position updates onto a map and records drag corrections back to the data file.`,
	Version: BuildVersion,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		rt, err = setup(configDir)
		return err
	},
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the map, replay updates and accept drag corrections",
	RunE:  runRun,
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay updates without a display and print final positions",
	RunE:  runReplay,
}

var moveCmd = &cobra.Command{
	Use:   "move <soldier-id> <lat> <lng>",
	Short: "Record a position correction for one soldier",
	Args:  cobra.ExactArgs(3),
	RunE:  runMove,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy the document into another storage backend",
	RunE:  runExport,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", ".", "Directory containing "+config.FileName)
	rootCmd.PersistentFlags().StringVarP(&dataFile, "data", "d", "", "Soldier data file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&storeType, "storage", "", "Storage backend (json, sqlite, postgres)")

	_ = viper.BindPFlag("dataFile", rootCmd.PersistentFlags().Lookup("data"))
	_ = viper.BindPFlag("logLevel", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("storage.type", rootCmd.PersistentFlags().Lookup("storage"))

	replayCmd.Flags().DurationVarP(&replayInterval, "interval", "i", -1, "Pause between records (negative for none)")

	exportCmd.Flags().StringVarP(&exportType, "type", "t", "sqlite", "Destination backend (json, sqlite, postgres)")
	exportCmd.Flags().StringVarP(&exportPath, "path", "p", "", "Destination file for json and sqlite")

	rootCmd.AddCommand(runCmd, replayCmd, moveCmd, exportCmd)
}

func main() {
	err := rootCmd.Execute()
	rt.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a := app.New(app.OptionsFromConfig(), rt.log, rt.zlog)
	defer a.Close()
	return a.Run(ctx)
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	opts := app.OptionsFromConfig()
	opts.Replay.Interval = replayInterval
	a := app.New(opts, rt.log, rt.zlog)
	a.Headless = memory.New(rt.log)
	defer a.Close()

	if err := a.Open(ctx); err != nil {
		return err
	}
	if err := a.Replay(ctx); err != nil {
		return err
	}
	states, err := a.Markers(ctx)
	if err != nil {
		return err
	}
	printMarkers(cmd.OutOrStdout(), states)
	return nil
}

func runMove(cmd *cobra.Command, args []string) error {
	id, pos, err := parseMoveArgs(args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a := app.New(app.OptionsFromConfig(), rt.log, rt.zlog)
	a.Headless = memory.New(rt.log)
	defer a.Close()

	if err := a.Open(ctx); err != nil {
		return err
	}
	if err := a.Correct(ctx, id, pos); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Soldier %d moved to %.6f, %.6f\n", id, pos.Lat, pos.Lng)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg := config.GetStorageConfig()
	target, err := exportTarget(exportType, exportPath, cfg)
	if err != nil {
		return err
	}
	deps := factory.Deps{Log: rt.log, ZLog: rt.zlog}

	src, err := factory.NewBackend(cfg, config.GetString("dataFile"), deps)
	if err != nil {
		return err
	}
	if err := src.Init(); err != nil {
		return err
	}
	defer src.Close()

	dst, err := factory.ByType(exportType, target.cfg, target.file, deps)
	if err != nil {
		return err
	}
	defer dst.Close()

	var soldiers, updates int
	if snap, ok := dst.(app.SnapshotBackend); ok && target.snapshot != "" {
		soldiers, updates, err = app.ExportSnapshot(ctx, src, snap, target.snapshot)
	} else {
		soldiers, updates, err = app.Export(ctx, src, dst)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d soldiers and %d updates to %s\n", soldiers, updates, target.describe(exportType))
	return nil
}

// exportDest is where an export writes. file is the json path; a sqlite
// export is built in memory and written to snapshot.
type exportDest struct {
	cfg      config.StorageConfig
	file     string
	snapshot string
}

func (d exportDest) describe(kind string) string {
	switch {
	case d.file != "":
		return d.file
	case d.snapshot != "":
		return d.snapshot
	}
	return kind
}

func exportTarget(kind, path string, cfg config.StorageConfig) (exportDest, error) {
	switch kind {
	case "", "json":
		if path == "" {
			return exportDest{}, errors.New("export to json requires --path")
		}
		return exportDest{cfg: cfg, file: path}, nil
	case "sqlite":
		if path == "" {
			path = cfg.SQLite.Path
		}
		if path == "" {
			return exportDest{}, errors.New("export to sqlite requires --path or storage.sqlite.path")
		}
		cfg.SQLite.Path = ""
		return exportDest{cfg: cfg, snapshot: path}, nil
	case "postgres":
		return exportDest{cfg: cfg}, nil
	default:
		return exportDest{}, fmt.Errorf("unknown storage type: %s", kind)
	}
}

func parseMoveArgs(args []string) (int, geo.LatLng, error) {
	if len(args) != 3 {
		return 0, geo.LatLng{}, fmt.Errorf("expected 3 arguments, got %d", len(args))
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, geo.LatLng{}, fmt.Errorf("invalid soldier id %q: %w", args[0], err)
	}
	pos, err := geo.ParseLatLng(args[1] + "," + args[2])
	if err != nil {
		return 0, geo.LatLng{}, fmt.Errorf("position %s, %s: %w", args[1], args[2], err)
	}
	return id, pos, nil
}

func printMarkers(w io.Writer, states []app.MarkerState) {
	for _, s := range states {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.6f\t%.6f\n", s.SoldierID, s.Name, s.Color, s.Position.Lat, s.Position.Lng)
	}
}
