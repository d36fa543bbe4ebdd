// Package logging implements a Logger external collaborator: a
// log(level, source_location, text) sink with a should_log(level) ->
// bool elision predicate, backed by go.uber.org/zap, threaded through
// constructors and `.Named(...)`'d per subsystem.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level enumerates log levels in increasing severity order so ShouldLog
// can compare numerically.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelTrace, LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelCritical:
		return zapcore.DPanicLevel
	default:
		return zapcore.InvalidLevel
	}
}

// Logger is the sink every Nexus object logs through. SourceLocation is
// a plain string (file:line or a component tag) rather than a structured
// type, matching how the original threads a preformatted location string
// through its logging macros.
type Logger interface {
	Log(level Level, sourceLocation string, text string)
	ShouldLog(level Level) bool
	// Named returns a child logger scoped to name, mirroring zap's
	// *Logger.Named and letting callback dispatchers, streams, and
	// connections each get their own tag without passing strings around.
	Named(name string) Logger
}

// zapLogger adapts *zap.SugaredLogger to the Logger interface.
type zapLogger struct {
	sugar *zap.SugaredLogger
	min   Level
}

// NewZap wraps an existing *zap.SugaredLogger. min is the lowest level
// ShouldLog reports as enabled, letting hot call sites skip formatting
// work for disabled levels.
func NewZap(sugar *zap.SugaredLogger, min Level) Logger {
	return &zapLogger{sugar: sugar, min: min}
}

// NewProduction builds a Logger over zap's production JSON encoder
// config, named "nexus".
func NewProduction(min Level) (Logger, error) {
	base, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewZap(base.Sugar().Named("nexus"), min), nil
}

func (l *zapLogger) Log(level Level, sourceLocation string, text string) {
	if !l.ShouldLog(level) {
		return
	}
	msg := fmt.Sprintf("%s: %s", sourceLocation, text)
	switch level {
	case LevelTrace, LevelDebug:
		l.sugar.Debug(msg)
	case LevelInfo:
		l.sugar.Info(msg)
	case LevelWarn:
		l.sugar.Warn(msg)
	case LevelError:
		l.sugar.Error(msg)
	case LevelCritical:
		l.sugar.Error(msg)
	}
}

func (l *zapLogger) ShouldLog(level Level) bool {
	return level >= l.min && level != LevelOff
}

func (l *zapLogger) Named(name string) Logger {
	return &zapLogger{sugar: l.sugar.Named(name), min: l.min}
}

// Noop is a Logger that discards everything and reports every level as
// disabled; used as Application's default when the caller supplies none.
type Noop struct{}

func (Noop) Log(Level, string, string) {}
func (Noop) ShouldLog(Level) bool      { return false }
func (n Noop) Named(string) Logger     { return n }

var (
	_ Logger = (*zapLogger)(nil)
	_ Logger = Noop{}
)
