package iriswallet

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/rgb-tools/iris-wallet-core/build"
	"github.com/rgb-tools/iris-wallet-core/flavour"
	"github.com/rgb-tools/iris-wallet-core/supervisor"
)

const (
	defaultLogFilename    = "iriswallet.log"
	defaultMaxLogFiles    = 3
	defaultMaxLogFileSize = 10

	// defaultManifestFilename is the frozen build manifest packaged next
	// to release binaries.
	defaultManifestFilename = "build_info.json"

	// defaultDaemonBinary is the RLN daemon binary looked up on PATH when
	// no explicit path is configured.
	defaultDaemonBinary = "rgb-lightning-node"
)

// Config holds the parsed command line options together with the resolved
// flavour and the derived on-disk layout.
//
//nolint:lll
type Config struct {
	ShowVersion bool `short:"V" long:"version" description:"Display version information and exit"`

	Network string `long:"network" description:"The bitcoin network to run on" choice:"mainnet" choice:"testnet" choice:"regtest"`
	LdkPort uint16 `long:"ldk-port" description:"Port for the daemon's LDK peer listener"`
	AppName string `long:"app-name" description:"Instance name suffix, isolates data dir and keyring of a second instance"`

	Manifest string `long:"manifest" description:"Path to a frozen build manifest, overrides the network flags"`

	DaemonPath string `long:"daemon-path" description:"Path to the RLN daemon binary"`
	DaemonPort uint16 `long:"daemon-port" description:"Port the daemon's JSON HTTP listener binds to, picked automatically when unset"`

	DebugLevel     string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	MaxLogFiles    int    `long:"maxlogfiles" description:"Maximum logfiles to keep (0 for no rotation)"`
	MaxLogFileSize int    `long:"maxlogfilesize" description:"Maximum logfile size in MB"`

	// ActiveFlavour is the resolved process flavour. It is not a flag.
	ActiveFlavour *flavour.Flavour

	// Paths is the derived per-flavour directory layout. It is not a
	// flag.
	Paths *flavour.AppPaths
}

// DefaultConfig returns all default values for the Config struct.
func DefaultConfig() Config {
	return Config{
		DaemonPath:     defaultDaemonBinary,
		DebugLevel:     build.LogLevel,
		MaxLogFiles:    defaultMaxLogFiles,
		MaxLogFileSize: defaultMaxLogFileSize,
	}
}

// LoadConfig initializes and parses the config using command line options.
// It resolves the process flavour, creates the on-disk layout and configures
// logging, so callers can rely on a fully usable environment afterwards.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if _, err := flags.Parse(&cfg); err != nil {
		return nil, err
	}

	// Show the version and exit if the version flag was specified.
	if cfg.ShowVersion {
		fmt.Printf("%s version %s\n", flavour.DefaultAppName,
			build.Version())
		os.Exit(0)
	}

	activeFlavour, err := resolveFlavour(&cfg)
	if err != nil {
		return nil, err
	}
	cfg.ActiveFlavour = activeFlavour

	cfg.Paths = activeFlavour.Paths()
	if err := cfg.Paths.EnsureDirs(); err != nil {
		return nil, err
	}

	// Initialize logging at the default logging level.
	err = initLogRotator(
		filepath.Join(cfg.Paths.AppLogsDir, defaultLogFilename),
		cfg.MaxLogFileSize, cfg.MaxLogFiles,
	)
	if err != nil {
		return nil, err
	}

	// Parse, validate, and set debug log level(s).
	err = build.ParseAndSetDebugLevels(cfg.DebugLevel, logManager{})
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolveFlavour decides the process flavour. Packaged builds read the
// frozen manifest next to the executable so a release binary can never be
// pointed at the wrong network; dev runs take the network from the command
// line.
func resolveFlavour(cfg *Config) (*flavour.Flavour, error) {
	manifestPath := cfg.Manifest
	if manifestPath == "" && build.IsProdBuild() {
		exePath, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("unable to locate "+
				"executable: %w", err)
		}
		manifestPath = filepath.Join(
			filepath.Dir(exePath), defaultManifestFilename,
		)
	}

	if manifestPath != "" {
		if _, err := os.Stat(manifestPath); err == nil {
			return flavour.LoadManifest(manifestPath)
		} else if cfg.Manifest != "" {
			return nil, fmt.Errorf("manifest %s: %w",
				cfg.Manifest, err)
		}
	}

	if cfg.Network == "" {
		return nil, fmt.Errorf("no build manifest found and no " +
			"--network given")
	}
	network, err := flavour.ParseNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}

	return &flavour.Flavour{
		Network:       network,
		LdkPort:       cfg.LdkPort,
		AppNameSuffix: cfg.AppName,
	}, nil
}

// daemonPort returns the port the supervisor binds the daemon to, probing
// for a free one when none was configured.
func (c *Config) daemonPort() (uint16, error) {
	if c.DaemonPort != 0 {
		return c.DaemonPort, nil
	}
	return supervisor.FindAvailablePort(flavour.DefaultDaemonPort, 50)
}
