package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog Logger writing JSON to stdout.
// APP_ENV=dev (or development / local) switches to the console writer.
func NewLogger(env string) zerolog.Logger {
	switch env {
	case "dev", "development", "local":
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	default:
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
