package logging

import (
	"fmt"
	"os"

	"github.com/goliatone/go-callcache/cache"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger bundles a zap logger with the file writers it owns.
type Logger struct {
	*zap.Logger
	writers []*lumberjack.Logger
}

// New builds a logger from cfg. Console output goes to stderr so it never
// interleaves with reports printed on stdout. When cfg.File.Path is set,
// entries are also written to a rotated file.
func New(cfg cache.LogConfig) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoder := newEncoder(cfg)
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level),
	}

	var writers []*lumberjack.Logger
	if cfg.File.Path != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
		writers = append(writers, lj)

		fileCfg := cfg
		fileCfg.Encoding = "json"
		cores = append(cores, zapcore.NewCore(newEncoder(fileCfg), zapcore.AddSync(lj), level))
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	return &Logger{
		Logger:  zap.New(zapcore.NewTee(cores...), opts...),
		writers: writers,
	}, nil
}

// Close flushes the logger and closes its files.
func (l *Logger) Close() error {
	var errs error
	// Sync on stderr fails on some platforms, only file writers are checked.
	_ = l.Logger.Sync()
	for _, w := range l.writers {
		errs = multierr.Append(errs, w.Close())
	}
	return errs
}

// ParseLevel converts a level name into a zap level.
func ParseLevel(name string) (zapcore.Level, error) {
	switch name {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("logging: unknown level %q", name)
	}
}

func newEncoder(cfg cache.LogConfig) zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}

	if cfg.Encoding == "json" {
		return zapcore.NewJSONEncoder(encCfg)
	}
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(encCfg)
}
