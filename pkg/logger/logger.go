package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.SugaredLogger

// Init configures the global logger. Development gets a console encoder at
// debug level, everything else JSON at info level.
func Init(environment string) {
	var cfg zap.Config
	if environment == "development" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		base = zap.NewNop()
	}
	log = base.Sugar()
}

func ensure() *zap.SugaredLogger {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return log
}

func Debug(msg string, keysAndValues ...any) {
	ensure().Debugw(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...any) {
	ensure().Infow(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	ensure().Warnw(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	ensure().Errorw(msg, keysAndValues...)
}

func Fatal(msg string, keysAndValues ...any) {
	ensure().Fatalw(msg, keysAndValues...)
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
