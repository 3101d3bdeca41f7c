// Package logging defines the Logger collaborator consumed by
// directory.Context (spec §6) and a default implementation backed by zap.
package logging

import "go.uber.org/zap"

// Field is a structured logging key/value pair, kept provider-agnostic so
// callers don't need to import zap directly to build log calls.
type Field struct {
	Key   string
	Value any
}

// Logger is the collaborator directory.Context logs through: a trace sink
// for request detail, plus an error sink for directory operation failures.
type Logger interface {
	// TraceEnabled reports whether Trace calls are emitted; the zap-backed
	// Trace returns without logging when it is false.
	TraceEnabled() bool
	Trace(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
}

// zapLogger adapts a *zap.Logger to the Logger interface.
type zapLogger struct {
	logger       *zap.Logger
	traceEnabled bool
}

// New wraps an existing *zap.Logger. traceEnabled gates Trace calls
// independently of zap's own level filtering, mirroring the
// logger.trace_enabled flag of spec §6.
func New(logger *zap.Logger, traceEnabled bool) Logger {
	return &zapLogger{logger: logger, traceEnabled: traceEnabled}
}

// NewProduction builds a ready-to-use Logger from zap's production JSON
// configuration with sampling disabled.
func NewProduction(serviceName string, traceEnabled bool) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	if serviceName != "" {
		logger = logger.With(zap.String("serviceName", serviceName))
	}

	return New(logger, traceEnabled), nil
}

func (l *zapLogger) TraceEnabled() bool { return l.traceEnabled }

func (l *zapLogger) Trace(msg string, fields ...Field) {
	if !l.traceEnabled {
		return
	}

	l.logger.Debug(msg, toZapFields(fields)...)
}

func (l *zapLogger) Error(msg string, err error, fields ...Field) {
	l.logger.Error(msg, append(toZapFields(fields), zap.Error(err))...)
}

func toZapFields(fields []Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		zapFields[i] = zap.Any(f.Key, f.Value)
	}

	return zapFields
}

// Noop is a Logger that discards everything; useful as a default when the
// caller does not provide one.
var Noop Logger = noopLogger{}

type noopLogger struct{}

func (noopLogger) TraceEnabled() bool            { return false }
func (noopLogger) Trace(string, ...Field)        {}
func (noopLogger) Error(string, error, ...Field) {}
