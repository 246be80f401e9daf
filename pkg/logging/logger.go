package logging

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Logger aliases zerolog.Logger so callers outside this package can depend on
// the logging contract without importing the third-party module directly.
type Logger = zerolog.Logger

var (
	// runID tags every log line of the current execution.
	runID     string
	runIDOnce sync.Once
)

// RunID returns the unique id for this process execution.
func RunID() string {
	runIDOnce.Do(func() {
		runID = uuid.New().String()
	})
	return runID
}

// New constructs the root logger with sane defaults for the service.
// In development the output is human-readable console format at debug level;
// otherwise JSON at info level.
func New(appEnv string) Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("run_id", RunID()).
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return logger
}

// Component derives a sub-logger tagged with a component name so log lines
// from the scheduler, browser controller, and HTTP server are distinguishable.
func Component(logger Logger, name string) Logger {
	return logger.With().Str("component", name).Logger()
}
