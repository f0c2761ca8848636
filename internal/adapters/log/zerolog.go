// Package log provides ports.Logger adapters: a zerolog-backed logger for
// real use and a no-op logger as the library default.
package log

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/oval-labs/simtap/internal/ports"
)

// ZerologAdapter implements ports.Logger on top of a zerolog.Logger.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter creates an adapter writing human-readable output to
// stderr.
func NewZerologAdapter() *ZerologAdapter {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	return &ZerologAdapter{logger: logger}
}

// NewZerologAdapterWithLogger wraps an existing zerolog.Logger.
func NewZerologAdapterWithLogger(logger zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: logger}
}

// Debug logs a debug-level message with fields.
func (a *ZerologAdapter) Debug(msg string, fields ...ports.Field) {
	a.emit(a.logger.Debug(), msg, fields)
}

// Info logs an info-level message with fields.
func (a *ZerologAdapter) Info(msg string, fields ...ports.Field) {
	a.emit(a.logger.Info(), msg, fields)
}

// Warn logs a warning-level message with fields.
func (a *ZerologAdapter) Warn(msg string, fields ...ports.Field) {
	a.emit(a.logger.Warn(), msg, fields)
}

// Error logs an error-level message with fields.
func (a *ZerologAdapter) Error(msg string, fields ...ports.Field) {
	a.emit(a.logger.Error(), msg, fields)
}

func (a *ZerologAdapter) emit(ev *zerolog.Event, msg string, fields []ports.Field) {
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			ev = ev.Str(f.Key, v)
		case int:
			ev = ev.Int(f.Key, v)
		case uint64:
			ev = ev.Uint64(f.Key, v)
		case ports.Hexadecimal:
			ev = ev.Str(f.Key, fmt.Sprintf("0x%X", uint64(v)))
		case bool:
			ev = ev.Bool(f.Key, v)
		case time.Duration:
			ev = ev.Dur(f.Key, v)
		case error:
			ev = ev.AnErr(f.Key, v)
		default:
			ev = ev.Interface(f.Key, v)
		}
	}
	ev.Msg(msg)
}
