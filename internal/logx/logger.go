package logx

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls how the global logger is built
type Options struct {
	Environment string
	Level       string
}

// Init configures the global zerolog logger. Production logs JSON at info level
// unless Level overrides it; everything else gets a console writer at debug level.
func Init(opts Options) {
	var logger zerolog.Logger
	level := zerolog.DebugLevel

	if opts.Environment == "production" {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		level = zerolog.InfoLevel
	} else {
		logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Caller().Logger()
	}

	if opts.Level != "" {
		if parsed, err := zerolog.ParseLevel(opts.Level); err == nil {
			level = parsed
		}
	}

	log.Logger = logger.Level(level)
}

// Component returns a child logger tagged with the component name
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
