// Package telemetry wires the event taxonomy of the control loop into
// structured logging.
package telemetry

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Kind enumerates the error/event taxonomy the core loop can raise.
type Kind int

const (
	// KindRendererUnreachableTransient is a single set_volume/get_volume timeout.
	KindRendererUnreachableTransient Kind = iota
	// KindRendererUnreachablePersistent is three consecutive transient failures.
	KindRendererUnreachablePersistent
	// KindAudioOverflow is a capture callback overrun; the assembler flushed a gap.
	KindAudioOverflow
	// KindAudioDeviceLost is a capture callback silence exceeding the device timeout.
	KindAudioDeviceLost
	// KindInvalidConfig is a startup configuration rejection.
	KindInvalidConfig
	// KindInterrupt is an external shutdown signal.
	KindInterrupt
	// KindModeTransition marks Auto <-> Manual hold switches.
	KindModeTransition
)

func (k Kind) String() string {
	switch k {
	case KindRendererUnreachableTransient:
		return "renderer_unreachable_transient"
	case KindRendererUnreachablePersistent:
		return "renderer_unreachable_persistent"
	case KindAudioOverflow:
		return "audio_overflow"
	case KindAudioDeviceLost:
		return "audio_device_lost"
	case KindInvalidConfig:
		return "invalid_config"
	case KindInterrupt:
		return "interrupt"
	case KindModeTransition:
		return "mode_transition"
	default:
		return "unknown"
	}
}

// Fatal reports whether this kind terminates the process per the error
// handling design: only device loss, bad config, and interrupt are fatal.
func (k Kind) Fatal() bool {
	switch k {
	case KindAudioDeviceLost, KindInvalidConfig, KindInterrupt:
		return true
	default:
		return false
	}
}

// Event is one taxonomy occurrence, carried through the logger as
// structured fields rather than an interpolated string.
type Event struct {
	Kind    Kind
	Message string
	Fields  []any
}

// Logger wraps charmbracelet/log with the event taxonomy's vocabulary.
// When debugFile is set every record is mirrored to it at debug level,
// so a console run at Info level still leaves a full trace on disk.
type Logger struct {
	base *log.Logger
	file *log.Logger
}

// New builds a Logger writing to w at the given level. Pass a non-nil
// debugFile to additionally fan out every record to a file sink.
func New(w io.Writer, level log.Level, debugFile *os.File) *Logger {
	l := &Logger{
		base: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			Level:           level,
		}),
	}
	if debugFile != nil {
		l.file = log.NewWithOptions(debugFile, log.Options{
			ReportTimestamp: true,
			Level:           log.DebugLevel,
		})
	}
	return l
}

// Emit logs a taxonomy event with its kind and message as structured fields.
func (l *Logger) Emit(ev Event) {
	fields := append([]any{"kind", ev.Kind.String()}, ev.Fields...)
	if ev.Kind.Fatal() {
		l.base.Error(ev.Message, fields...)
	} else {
		l.base.Warn(ev.Message, fields...)
	}
	if l.file != nil {
		l.file.Debug(ev.Message, fields...)
	}
}

// Info logs a plain informational line with structured fields.
func (l *Logger) Info(msg string, fields ...any) {
	l.base.Info(msg, fields...)
	if l.file != nil {
		l.file.Debug(msg, fields...)
	}
}

// Debug logs at debug level, mirrored to the file sink if configured.
func (l *Logger) Debug(msg string, fields ...any) {
	l.base.Debug(msg, fields...)
	if l.file != nil {
		l.file.Debug(msg, fields...)
	}
}
