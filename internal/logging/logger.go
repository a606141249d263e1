package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/edvin/backupdash/internal/config"
)

// NewLogger creates a structured zerolog.Logger tagged with the service name
// and filtered at the configured level. Unknown levels fall back to info.
// With LOG_FILE set, output also goes to a size-rotated file.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return newLogger(output(cfg, os.Stdout), cfg)
}

func output(cfg *config.Config, stdout io.Writer) io.Writer {
	if cfg.LogFile == "" {
		return stdout
	}
	file := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		Compress:   true,
	}
	return zerolog.MultiLevelWriter(stdout, file)
}

func newLogger(w io.Writer, cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(w).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
