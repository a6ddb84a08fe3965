package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/viewcasthq/viewcast-server/internal/config"
)

// New builds the root logger for the service. Development gets a console
// writer, everything else emits JSON for log shippers.
func New(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.Environment == "development" {
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		log = zerolog.New(writer)
	} else {
		log = zerolog.New(os.Stderr)
	}

	return log.Level(level).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Logger()
}
