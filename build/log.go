package build

import (
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btclog"
)

// LogType selects where log output goes, fixed by build flags.
type LogType byte

const (
	// LogTypeNone discards all logging.
	LogTypeNone LogType = iota

	// LogTypeStdOut writes logging to stdout only.
	LogTypeStdOut

	// LogTypeDefault writes logging to stdout and the rotator pipe.
	LogTypeDefault
)

// String returns a human readable name for the logging type.
func (t LogType) String() string {
	switch t {
	case LogTypeNone:
		return "none"
	case LogTypeStdOut:
		return "stdout"
	case LogTypeDefault:
		return "default"
	default:
		return "unknown"
	}
}

// LogWriter is the shared sink behind every subsystem logger. Its Write
// method is chosen by the "stdlog" and "nolog" build flags; without either
// it duplicates output to stdout and the rotator pipe.
type LogWriter struct {
	// RotatorPipe is the write end of the log rotator's pipe. Only the
	// default logging type consults it, and only when non-nil.
	RotatorPipe *io.PipeWriter
}

// NewSubLogger returns a logger for one subsystem. For production builds and
// the default development configuration the logger comes from genSubLogger,
// the backend shared by the whole process. Development builds compiled with
// "stdlog" get a standalone stdout logger instead, which is what unit tests
// see. Any other combination disables logging.
func NewSubLogger(subsystem string,
	genSubLogger func(string) btclog.Logger) btclog.Logger {

	switch {
	case Deployment == Production,
		Deployment == Development && LoggingType == LogTypeDefault:

		if genSubLogger != nil {
			return genSubLogger(subsystem)
		}

	case Deployment == Development && LoggingType == LogTypeStdOut:
		backend := btclog.NewBackend(&LogWriter{})
		logger := backend.Logger(subsystem)

		level, _ := btclog.LevelFromString(LogLevel)
		logger.SetLevel(level)

		return logger
	}

	return btclog.Disabled
}

// SubLoggers maps subsystem names to their loggers.
type SubLoggers map[string]btclog.Logger

// LeveledSubLogger exposes the subsystem loggers of a process so their
// levels can be adjusted individually or all at once.
type LeveledSubLogger interface {
	// SubLoggers returns the map of all registered subsystem loggers.
	SubLoggers() SubLoggers

	// SupportedSubsystems returns the sorted names of the supported
	// subsystems.
	SupportedSubsystems() []string

	// SetLogLevel assigns one subsystem logger a new log level.
	SetLogLevel(subsystemID string, logLevel string)

	// SetLogLevels assigns all subsystem loggers the same new log level.
	SetLogLevels(logLevel string)
}

// ParseAndSetDebugLevels applies a debug level specification to the given
// logger. The specification is either a bare level applied to every
// subsystem, a comma separated list of subsystem=level pairs, or a bare
// level followed by such pairs.
func ParseAndSetDebugLevels(level string, logger LeveledSubLogger) error {
	levels := strings.Split(level, ",")
	if len(levels) == 0 {
		return fmt.Errorf("invalid log level: %v", level)
	}

	// A first entry without = is the level for all subsystems; the
	// remaining entries override it per subsystem.
	if !strings.Contains(levels[0], "=") {
		if !validLogLevel(levels[0]) {
			return fmt.Errorf("the specified debug level [%v] is "+
				"invalid", levels[0])
		}

		logger.SetLogLevels(levels[0])
		levels = levels[1:]
	}

	for _, pair := range levels {
		fields := strings.Split(pair, "=")
		if len(fields) != 2 {
			return fmt.Errorf("the specified debug level has an "+
				"invalid format [%v] -- use format "+
				"subsystem1=level1,subsystem2=level2", pair)
		}
		subsysID, logLevel := fields[0], fields[1]

		if _, ok := logger.SubLoggers()[subsysID]; !ok {
			return fmt.Errorf("the specified subsystem [%v] is "+
				"invalid -- supported subsystems are %v",
				subsysID, logger.SupportedSubsystems())
		}
		if !validLogLevel(logLevel) {
			return fmt.Errorf("the specified debug level [%v] is "+
				"invalid", logLevel)
		}

		logger.SetLogLevel(subsysID, logLevel)
	}

	return nil
}

// validLogLevel returns whether logLevel names a known debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical", "off":
		return true
	}
	return false
}
