package logx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Simplici0/margingate/internal/config"
)

var DefaultLoggerOpts = &LoggerOpts{
	Environment: config.Development,
}

type LoggerOpts struct {
	Environment config.Environment
	// Output defaults to stderr.
	Output io.Writer
}

func safe(opts ...LoggerOpts) *LoggerOpts {
	if len(opts) == 0 {
		return DefaultLoggerOpts
	}
	return &opts[0]
}

// Init configures the global zerolog logger: JSON at info level in
// production, a colored console writer at debug level everywhere else.
func Init(opts ...LoggerOpts) {
	o := safe(opts...)
	out := o.Output
	if out == nil {
		out = os.Stderr
	}

	if o.Environment.IsProduction() {
		log.Logger = zerolog.New(out).With().Timestamp().Logger().Level(zerolog.InfoLevel)
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Caller().Logger()
	log.Logger = log.Logger.Level(zerolog.DebugLevel)
}

// Logger returns the configured global logger.
func Logger() *zerolog.Logger {
	return &log.Logger
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
