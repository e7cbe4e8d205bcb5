package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// swapped in tests
var osStdout io.Writer = os.Stdout

// SlogManager owns the process slog.Logger and the OTel log provider it
// bridges to.
type SlogManager struct {
	logger      *slog.Logger
	logProvider *sdklog.LoggerProvider
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel accepts slog level names in any case; anything else is info.
func parseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// utcTime renders record times as RFC 3339 UTC.
func utcTime(_ []string, a slog.Attr) slog.Attr {
	if t, ok := a.Value.Any().(time.Time); ok && a.Key == slog.TimeKey {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
	}
	return a
}

// Setup (re)builds the logger. The text log goes to file, or to stdout
// when file is nil. Each sink gets JSON records. A nil provider leaves the
// OTel bridge out.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, sinks ...io.Writer) {
	m.logProvider = provider
	opts := &slog.HandlerOptions{Level: parseLevel(level), ReplaceAttr: utcTime}

	text := file
	if text == nil {
		text = osStdout
	}
	handlers := []slog.Handler{slog.NewTextHandler(text, opts)}
	for _, w := range sinks {
		if w != nil {
			handlers = append(handlers, slog.NewJSONHandler(w, opts))
		}
	}
	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(AppName, otelslog.WithLoggerProvider(provider)))
	}

	m.logger = slog.New(NewFanout(handlers...))
	m.logger.Info("Logging initialized", "level", opts.Level)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
