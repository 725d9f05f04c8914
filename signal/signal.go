// Package signal installs a process-wide interrupt handler. The wallet core
// owns a child daemon process, so shutdown must be funneled through a single
// place that gives the supervisor a chance to terminate the daemon before the
// process exits.
package signal

import (
	"os"
	"os/signal"
	"syscall"
)

var (
	// interruptChannel receives operating system interrupt signals.
	interruptChannel = make(chan os.Signal, 1)

	// shutdownRequestChannel is used to request a graceful shutdown from
	// within the application, similar to when receiving SIGINT.
	shutdownRequestChannel = make(chan struct{})

	// quit is closed when instructing the main interrupt handler to exit.
	quit = make(chan struct{})

	// shutdownChannel is closed once the main interrupt handler exits.
	shutdownChannel = make(chan struct{})
)

// Intercept starts the interception of interrupt signals. It must be called
// at most once per process.
func Intercept() {
	signalsToCatch := []os.Signal{
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	}
	signal.Notify(interruptChannel, signalsToCatch...)
	go mainInterruptHandler()
}

// mainInterruptHandler listens for interrupt signals on the interruptChannel
// and shutdown requests on the shutdownRequestChannel.
//
// NOTE: It must be run as a goroutine.
func mainInterruptHandler() {
	// isShutdown indicates whether the shutdown signal has already been
	// received, so duplicate signals can be ignored.
	var isShutdown bool

	// shutdown signals the rest of the application to exit.
	shutdown := func() {
		if isShutdown {
			log.Infof("Already shutting down...")
			return
		}
		isShutdown = true
		log.Infof("Shutting down...")

		close(quit)
	}

	for {
		select {
		case sig := <-interruptChannel:
			log.Infof("Received %v", sig)
			shutdown()

		case <-shutdownRequestChannel:
			log.Infof("Received shutdown request.")
			shutdown()

		case <-quit:
			log.Infof("Gracefully shutting down.")
			close(shutdownChannel)
			signal.Stop(interruptChannel)
			return
		}
	}
}

// RequestShutdown initiates a graceful shutdown from the application.
func RequestShutdown() {
	select {
	case shutdownRequestChannel <- struct{}{}:
	case <-quit:
	}
}

// ShutdownChannel returns the channel that will be closed once the main
// interrupt handler has exited.
func ShutdownChannel() <-chan struct{} {
	return shutdownChannel
}
