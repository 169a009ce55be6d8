package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the API server logger.
func New(environment string) zerolog.Logger {
	return NewWriter(os.Stdout, environment, "api")
}

// NewWriter builds a logger for app that writes to out. Development builds
// log at debug level, production at info.
func NewWriter(out io.Writer, environment string, app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    environment == "production",
	}

	level := zerolog.DebugLevel
	if environment == "production" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(output).Level(level).With().
		Timestamp().
		Str("env", environment).
		Str("app", app).
		Logger()
}
