package util

import (
	"os"
	"time"

	"github.com/thessem/zap-prettyconsole"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// shortTimeEncoder encodes time in HH:MM:SS format for cleaner console output
func shortTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// NewLogger creates a new zap logger instance
// json - if true logs are in json format
func NewLogger(json bool) *zap.Logger {
	return NewLoggerLevel(json, zap.DebugLevel)
}

// NewLoggerLevel creates a new zap logger that drops entries below the
// given level
func NewLoggerLevel(json bool, level zapcore.Level) *zap.Logger {
	var core zapcore.Core

	if json {
		econf := zapcore.EncoderConfig{
			MessageKey:     "msg",
			LevelKey:       "level",
			TimeKey:        "time",
			NameKey:        "logger",
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		}
		core = zapcore.NewCore(zapcore.NewJSONEncoder(econf), os.Stdout, level)
	} else {
		// prettyconsole gives human readable key=value output in dev
		pcfg := prettyconsole.NewEncoderConfig()
		pcfg.EncodeTime = shortTimeEncoder
		core = zapcore.NewCore(prettyconsole.NewEncoder(pcfg), os.Stdout, level)
	}
	return zap.New(core)
}
