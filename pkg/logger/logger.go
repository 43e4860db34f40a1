package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. format is "console" for local
// runs or "json" for log shippers such as CloudWatch.
func Init(levelStr, format string) {
	InitWithWriter(levelStr, format, os.Stdout)
}

func InitWithWriter(levelStr, format string, out io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if format == "console" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "2006-01-02 15:04:05",
		}
	}

	level, err := zerolog.ParseLevel(levelStr)
	invalid := err != nil
	if invalid || levelStr == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()

	if invalid {
		log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
	}
}
