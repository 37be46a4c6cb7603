// Package logging provides the logger facade used across the core.  Services
// depend only on the Logger interface; the default implementation is backed
// by zap.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l *zapLogger) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

func (l *zapLogger) Infof(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

func (l *zapLogger) Warnf(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

func (l *zapLogger) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// FromZap adapts an existing zap logger.
func FromZap(logger *zap.Logger) Logger {
	return &zapLogger{sugar: logger.Sugar()}
}

// Default returns a production zap logger named after the supplied component.
func Default(name string) Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	if name != "" {
		logger = logger.Named(name)
	}
	return &zapLogger{sugar: logger.Sugar()}
}

// Nop returns a logger that discards everything; used in tests.
func Nop() Logger {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}
