package linmo

import "github.com/rs/zerolog"

// Logger is the structured logging sink the kernel writes boot and
// task lifecycle events, and panics, to. It is a per-Kernel field
// rather than a package global: NewKernel already gives callers a
// single handle, so a second piece of shared state would be
// redundant.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// noopLogger discards everything; it is the default so that a Kernel
// constructed without WithLogger never pays for logging overhead on
// the scheduler's hot path.
type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}

// zerologLogger adapts a zerolog.Logger to the Logger interface.
type zerologLogger struct {
	l zerolog.Logger
}

// NewZerologLogger wraps l as a kernel Logger.
func NewZerologLogger(l zerolog.Logger) Logger {
	return &zerologLogger{l: l}
}

func (z *zerologLogger) Debugf(format string, args ...any) {
	z.l.Debug().Msgf(format, args...)
}

func (z *zerologLogger) Infof(format string, args ...any) {
	z.l.Info().Msgf(format, args...)
}

func (z *zerologLogger) Warnf(format string, args ...any) {
	z.l.Warn().Msgf(format, args...)
}

func (z *zerologLogger) Errorf(format string, args ...any) {
	z.l.Error().Msgf(format, args...)
}
