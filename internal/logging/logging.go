// Package logging builds the zap logger used by the slate CLI.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the log level and destination.
type Options struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string

	// File, when set, receives JSON log lines rotated by size. Otherwise
	// logs go to stderr in console format.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultLevel is used when Options.Level is empty.
const DefaultLevel = "warn"

// New builds a logger from opts.
func New(opts Options) (*zap.Logger, error) {
	name := opts.Level
	if name == "" {
		name = DefaultLevel
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var core zapcore.Core
	if opts.File != "" {
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		w := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
		}
		core = zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), level)
	} else {
		enc := zap.NewDevelopmentEncoderConfig()
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), level)
	}
	return zap.New(core).Named("slate"), nil
}

func orDefault(v, d int) int {
	if v > 0 {
		return v
	}
	return d
}
