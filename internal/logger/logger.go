// Package logger builds the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Afrawles/trackreport/internal/config"
)

// New returns a console logger in dev and a JSON logger otherwise, and installs it as the
// global zerolog logger.
func New(cfg *config.Config) zerolog.Logger {
	return build(os.Stdout, cfg.IsDev(), cfg.Logging.Level)
}

func build(out io.Writer, dev bool, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if dev {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// ParseLevel maps a level name to zerolog, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
