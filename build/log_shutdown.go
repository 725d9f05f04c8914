package build

import (
	"github.com/btcsuite/btclog"
)

// ShutdownLogger wraps a logger so that critical log calls also request a
// process shutdown. The wallet core uses it for its root subsystem, where a
// critical condition such as exhausted disk space must stop the daemon
// rather than log and carry on.
type ShutdownLogger struct {
	btclog.Logger
	shutdown func()
}

// NewShutdownLogger wraps logger with the given shutdown request function.
func NewShutdownLogger(logger btclog.Logger, shutdown func()) *ShutdownLogger {
	return &ShutdownLogger{
		Logger:   logger,
		shutdown: shutdown,
	}
}

// Criticalf logs at critical level and requests shutdown.
//
// NOTE: part of the btclog.Logger interface.
func (s *ShutdownLogger) Criticalf(format string, params ...interface{}) {
	s.Logger.Criticalf(format, params...)
	s.Logger.Info("Sending request for shutdown")
	s.shutdown()
}

// Critical logs at critical level and requests shutdown.
//
// NOTE: part of the btclog.Logger interface.
func (s *ShutdownLogger) Critical(v ...interface{}) {
	s.Logger.Critical(v...)
	s.Logger.Info("Sending request for shutdown")
	s.shutdown()
}
