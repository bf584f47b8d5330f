// Package logger provides the process-wide structured logger and the
// component-scoped sub-loggers the pool, worker and monitor log through.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

// Init configures the global logger. level is any zerolog level name
// ("debug", "info", ...); pretty switches to a human-readable console
// writer for local development instead of JSON lines.
func Init(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var output io.Writer = os.Stdout
	if pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	log = zerolog.New(output).
		Level(lvl).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Get returns the global logger.
func Get() *zerolog.Logger {
	return &log
}

// WithComponent scopes the logger to a named subsystem.
func WithComponent(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithPool scopes the logger to a pool name.
func WithPool(name string) zerolog.Logger {
	return log.With().Str("pool", name).Logger()
}

// WithWorker scopes the logger to a worker index.
func WithWorker(index string) zerolog.Logger {
	return log.With().Str("worker_index", index).Logger()
}

// WithTask scopes the logger to a task uid.
func WithTask(uid string) zerolog.Logger {
	return log.With().Str("task_uid", uid).Logger()
}

func Debug() *zerolog.Event { return log.Debug() }
func Info() *zerolog.Event  { return log.Info() }
func Warn() *zerolog.Event  { return log.Warn() }
func Error() *zerolog.Event { return log.Error() }
func Fatal() *zerolog.Event { return log.Fatal() }

func init() {
	Init("info", false)
}
