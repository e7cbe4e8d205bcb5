package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/OCAP2/fieldmap/internal/config"
	"github.com/OCAP2/fieldmap/internal/logging"
	intOtel "github.com/OCAP2/fieldmap/internal/otel"
)

// session holds the process-wide logging and telemetry state.
type session struct {
	start   time.Time
	logFile *os.File
	slogMgr *logging.SlogManager
	otel    *intOtel.Provider
	sinks   []io.Closer

	log  *slog.Logger
	zlog zerolog.Logger
}

// setup loads configuration and brings up logging. A missing config file
// is not fatal; defaults are used.
func setup(configDir string) (*session, error) {
	s := &session{start: time.Now(), slogMgr: logging.NewSlogManager()}

	s.slogMgr.Setup(nil, "info", nil)
	s.log = s.slogMgr.Logger()

	if err := config.Load(configDir); err != nil {
		s.log.Warn("Failed to load config, using defaults!", "error", err)
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	logPath := logging.LogFilePath(logsDir, logging.AppName, s.start)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	s.logFile = f

	var sinks []io.Writer
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGraylogWriter(gl.Address)
		if err != nil {
			s.log.Warn("Graylog sink disabled", "address", gl.Address, "error", err)
		} else {
			sinks = append(sinks, w)
			s.sinks = append(s.sinks, w)
		}
	}

	oc := config.GetOTelConfig()
	s.otel, err = intOtel.New(intOtel.Config{
		Enabled:      oc.Enabled,
		ServiceName:  oc.ServiceName,
		BatchTimeout: oc.BatchTimeout,
		LogWriter:    f,
		Endpoint:     oc.Endpoint,
		Insecure:     oc.Insecure,

		MetricInterval: oc.MetricInterval,
	})
	if err != nil {
		s.log.Warn("Failed to initialize OTel, continuing without it", "error", err)
		s.otel, _ = intOtel.New(intOtel.Config{})
	}

	s.otel.Install()

	level := config.GetString("logLevel")
	s.slogMgr.Setup(f, level, s.otel.LoggerProvider(), sinks...)
	s.log = s.slogMgr.Logger()
	s.zlog = logging.NewZerolog(io.MultiWriter(append([]io.Writer{f}, sinks...)...), level)

	s.log.Info("Started", "version", BuildVersion, "logFile", logPath,
		"dataFile", config.GetString("dataFile"), "storage", config.GetString("storage.type"))
	return s, nil
}

func (s *session) close() {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.log.Info("Stopped", "uptime", time.Since(s.start).Round(time.Millisecond))
	_ = s.slogMgr.Flush(ctx)
	if s.otel != nil {
		_ = s.otel.Shutdown(ctx)
	}
	for _, c := range s.sinks {
		_ = c.Close()
	}
	if s.logFile != nil {
		_ = s.logFile.Close()
	}
}
