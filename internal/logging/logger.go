package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/kilohana/platform/internal/config"
)

// NewLogger creates the structured zerolog.Logger used across the process.
func NewLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "platform-api").Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
