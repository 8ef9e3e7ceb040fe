package logger

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. In development the output
// goes through the console writer; everywhere else it is plain JSON.
func Init(levelStr, appEnv string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	level := zerolog.InfoLevel
	if levelStr != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(levelStr))
		if err != nil {
			log.Warn().Err(err).Msgf("Invalid log level '%s', defaulting to 'info'", levelStr)
		} else {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	switch strings.ToLower(appEnv) {
	case "development", "dev":
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	// Anything still using the standard logger ends up in zerolog too.
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}
