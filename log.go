package iriswallet

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
	"github.com/rgb-tools/iris-wallet-core/backup"
	"github.com/rgb-tools/iris-wallet-core/build"
	"github.com/rgb-tools/iris-wallet-core/cache"
	"github.com/rgb-tools/iris-wallet-core/localstore"
	"github.com/rgb-tools/iris-wallet-core/rln"
	"github.com/rgb-tools/iris-wallet-core/secrets"
	"github.com/rgb-tools/iris-wallet-core/settings"
	"github.com/rgb-tools/iris-wallet-core/signal"
	"github.com/rgb-tools/iris-wallet-core/supervisor"
	"github.com/rgb-tools/iris-wallet-core/task"
	"github.com/rgb-tools/iris-wallet-core/unlock"
)

// Loggers per subsystem. A single backend logger is created and all subsystem
// loggers created from it will write to the backend. When adding new
// subsystems, add the subsystem logger variable here and to the
// subsystemLoggers map.
//
// Loggers can not be used before the log rotator has been initialized with a
// log file. This must be performed early during application startup by
// calling initLogRotator.
var (
	logWriter = &build.LogWriter{}

	// backendLog is the logging backend used to create all subsystem
	// loggers. The backend must not be used before the log rotator has
	// been initialized, or data races and/or nil pointer dereferences will
	// occur.
	backendLog = btclog.NewBackend(logWriter)

	// logRotator is one of the logging outputs. It should be closed on
	// application shutdown.
	logRotator *rotator.Rotator

	irisLog = build.NewShutdownLogger(
		build.NewSubLogger("IRIS", backendLog.Logger),
		signal.RequestShutdown,
	)
	lstrLog = build.NewSubLogger("LSTR", backendLog.Logger)
	scrtLog = build.NewSubLogger("SCRT", backendLog.Logger)
	cachLog = build.NewSubLogger("CACH", backendLog.Logger)
	rlncLog = build.NewSubLogger("RLNC", backendLog.Logger)
	spvrLog = build.NewSubLogger("SPVR", backendLog.Logger)
	unlkLog = build.NewSubLogger("UNLK", backendLog.Logger)
	settLog = build.NewSubLogger("SETT", backendLog.Logger)
	bkupLog = build.NewSubLogger("BKUP", backendLog.Logger)
	taskLog = build.NewSubLogger("TASK", backendLog.Logger)
	sgnlLog = build.NewSubLogger("SGNL", backendLog.Logger)
)

// Initialize package-global logger variables.
func init() {
	localstore.UseLogger(lstrLog)
	secrets.UseLogger(scrtLog)
	cache.UseLogger(cachLog)
	rln.UseLogger(rlncLog)
	supervisor.UseLogger(spvrLog)
	unlock.UseLogger(unlkLog)
	settings.UseLogger(settLog)
	backup.UseLogger(bkupLog)
	task.UseLogger(taskLog)
	signal.UseLogger(sgnlLog)
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = build.SubLoggers{
	"IRIS": irisLog,
	"LSTR": lstrLog,
	"SCRT": scrtLog,
	"CACH": cachLog,
	"RLNC": rlncLog,
	"SPVR": spvrLog,
	"UNLK": unlkLog,
	"SETT": settLog,
	"BKUP": bkupLog,
	"TASK": taskLog,
	"SGNL": sgnlLog,
}

// logManager exposes the subsystem loggers for debug level parsing. It
// implements build.LeveledSubLogger.
type logManager struct{}

// SubLoggers returns the map of all registered subsystem loggers.
func (logManager) SubLoggers() build.SubLoggers {
	return subsystemLoggers
}

// SupportedSubsystems returns a sorted slice of subsystem names.
func (logManager) SupportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for id := range subsystemLoggers {
		subsystems = append(subsystems, id)
	}
	sort.Strings(subsystems)
	return subsystems
}

// SetLogLevel assigns an individual subsystem logger a new log level. Invalid
// subsystems and levels are ignored.
func (logManager) SetLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	// Defaults to info if the log level is invalid.
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels assigns all subsystem loggers the same new log level.
func (m logManager) SetLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		m.SetLogLevel(subsystemID, logLevel)
	}
}

// initLogRotator initializes the logging rotator to write logs to logFile and
// create roll files in the same directory. It must be called before the
// package-global log rotator variables are used.
func initLogRotator(logFile string, maxLogFileSize, maxLogFiles int) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	r, err := rotator.New(
		logFile, int64(maxLogFileSize*1024), false, maxLogFiles,
	)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}

	pr, pw := io.Pipe()
	go r.Run(pr)

	logWriter.RotatorPipe = pw
	logRotator = r

	return nil
}
