package s3copy

import "go.uber.org/zap"

// Logger is the adapter interface every s3copy component logs through. It
// accepts simple key/value variadic pairs to keep call sites concise and to
// decouple the core from any particular structured-logging field type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NewZapLogger wraps a *zap.SugaredLogger into the Logger interface.
func NewZapLogger(l *zap.SugaredLogger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return &zapLoggerAdapter{l}
}

// NewNopLogger returns a no-op logger implementing Logger.
func NewNopLogger() Logger { return &nopLogger{} }

type zapLoggerAdapter struct{ l *zap.SugaredLogger }

func (z *zapLoggerAdapter) Debug(msg string, args ...any) { z.l.Debugw(msg, args...) }
func (z *zapLoggerAdapter) Info(msg string, args ...any)  { z.l.Infow(msg, args...) }
func (z *zapLoggerAdapter) Warn(msg string, args ...any)  { z.l.Warnw(msg, args...) }
func (z *zapLoggerAdapter) Error(msg string, args ...any) { z.l.Errorw(msg, args...) }

type nopLogger struct{}

func (n *nopLogger) Debug(_ string, _ ...any) {}
func (n *nopLogger) Info(_ string, _ ...any)  {}
func (n *nopLogger) Warn(_ string, _ ...any)  {}
func (n *nopLogger) Error(_ string, _ ...any) {}

// NewZapLoggerFromFormat builds a zap-backed Logger using "console" or
// "json" encoding, matching cmd/s3copy's --log-format flag.
func NewZapLoggerFromFormat(format string, quiet bool) (Logger, error) {
	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	if quiet {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(zl.Sugar()), nil
}
