// Package logging defines the Logger interface used across the ingestion
// and search pipelines, with a zerolog-backed implementation and a no-op
// stub for tests, grounded on the teacher's internal/rag/service/options.go
// ("minimal logging interface satisfied by zerolog and others") and
// internal/skills's zerolog usage style.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is the minimal structured-logging interface every component
// depends on, matching the teacher's internal/rag/service.Logger shape.
type Logger interface {
	Info(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
	Debug(msg string, fields map[string]any)
}

// ZerologLogger adapts zerolog.Logger to Logger.
type ZerologLogger struct {
	logger zerolog.Logger
}

// New builds a ZerologLogger writing JSON to stdout at the given level
// ("debug", "info", "error", ...); an unrecognised level falls back to info.
func New(level string) *ZerologLogger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	l := zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
	return &ZerologLogger{logger: l}
}

func (z *ZerologLogger) Info(msg string, fields map[string]any) {
	z.logger.Info().Fields(fields).Msg(msg)
}

func (z *ZerologLogger) Error(msg string, fields map[string]any) {
	z.logger.Error().Fields(fields).Msg(msg)
}

func (z *ZerologLogger) Debug(msg string, fields map[string]any) {
	z.logger.Debug().Fields(fields).Msg(msg)
}

// Nop discards everything; used in tests and wherever a Logger is optional.
type Nop struct{}

func (Nop) Info(string, map[string]any)  {}
func (Nop) Error(string, map[string]any) {}
func (Nop) Debug(string, map[string]any) {}

var _ Logger = (*ZerologLogger)(nil)
var _ Logger = Nop{}
