package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	iriswallet "github.com/rgb-tools/iris-wallet-core"
	"github.com/rgb-tools/iris-wallet-core/backup"
	"github.com/rgb-tools/iris-wallet-core/signal"
)

func main() {
	// Load the configuration, and parse any command line options. This
	// function will also set up logging properly.
	loadedConfig, err := iriswallet.LoadConfig()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	// Hook interceptor for os signals.
	signal.Intercept()

	// Archives land in a directory next to the wallet state by default.
	// Embedding applications substitute their own sink, e.g. a cloud
	// drive.
	sink := backup.NewDirSink(loadedConfig.Paths.AppDir)

	// Call the "real" main in a nested manner so the defers will properly
	// be executed in the case of a graceful shutdown.
	err = iriswallet.Main(loadedConfig, sink, signal.ShutdownChannel())
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
