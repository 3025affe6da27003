package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	zl *zap.SugaredLogger
}

func New(level string) *Logger {
	zapLevel := zapcore.InfoLevel
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		zl = zap.NewNop()
	}

	return &Logger{zl: zl.Sugar()}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.zl.Infof(msg, args...)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.zl.Debugf(msg, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.zl.Warnf(msg, args...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.zl.Errorf(msg, args...)
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.zl.Fatalf(msg, args...)
}

func (l *Logger) Sync() {
	l.zl.Sync()
}
