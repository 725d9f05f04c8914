package flavour

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
)

const (
	// DefaultAppName is the application name used for the data directory
	// and the keyring service when no suffix is configured.
	DefaultAppName = "iriswallet"

	// DefaultDaemonPort is the port the RLN daemon listens on when no
	// other port has been negotiated at supervisor start.
	DefaultDaemonPort = 3001

	// DefaultLdkPort is the peer-to-peer port handed to the daemon for
	// its LDK listener.
	DefaultLdkPort = 9735

	appSubDirname   = "app"
	nodeSubDirname  = "node"
	cacheSubDirname = "cache"
	logsSubDirname  = "logs"

	cacheFilePrefix  = "iris-wallet-cache"
	defaultCacheName = "iris-wallet-cache-default"
)

// Network enumerates the bitcoin networks the wallet can be flavoured for.
// Every piece of on-disk state is namespaced by the active network so that
// multiple flavours can coexist on one machine.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkRegtest Network = "regtest"
)

// ParseNetwork converts a string into a known Network value.
func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case NetworkMainnet, NetworkTestnet, NetworkRegtest:
		return Network(s), nil
	}
	return "", fmt.Errorf("unknown network %q", s)
}

// String returns the network's name.
func (n Network) String() string {
	return string(n)
}

// Valid reports whether the network is one of the three supported values.
func (n Network) Valid() bool {
	switch n {
	case NetworkMainnet, NetworkTestnet, NetworkRegtest:
		return true
	}
	return false
}

// Flavour is the process-wide build/flavour selection. It is resolved once at
// startup, either from the CLI for dev runs or from the frozen build manifest
// for packaged builds, and is treated as immutable afterwards.
type Flavour struct {
	// Network is the bitcoin network this instance operates on.
	Network Network

	// LdkPort is the optional port for the daemon's LDK peer listener. A
	// zero value means the default is used.
	LdkPort uint16

	// AppNameSuffix optionally isolates a second wallet instance by
	// giving it its own data directory and keyring namespace.
	AppNameSuffix string
}

// New returns a Flavour for the given network with default port and no
// instance suffix.
func New(network Network) *Flavour {
	return &Flavour{Network: network}
}

// AppName returns the effective application name, including the instance
// suffix when one is configured. It namespaces the data directory and the
// keyring service.
func (f *Flavour) AppName() string {
	if f.AppNameSuffix != "" {
		return DefaultAppName + "-" + f.AppNameSuffix
	}
	return DefaultAppName
}

// EffectiveLdkPort returns the configured LDK port, falling back to the
// default when none was set.
func (f *Flavour) EffectiveLdkPort() uint16 {
	if f.LdkPort != 0 {
		return f.LdkPort
	}
	return DefaultLdkPort
}

// AppPaths is the derived per-flavour directory layout. All paths lie under
// <app-data>/<app>/<network>.
type AppPaths struct {
	// BasePath is the per-network root directory.
	BasePath string

	// AppDir holds wallet-owned state: config file, cache, app logs.
	AppDir string

	// NodeDataDir is handed to the daemon for its own state.
	NodeDataDir string

	// LdkDataDir is where the daemon keeps LDK state.
	LdkDataDir string

	// CacheDir holds the response cache database.
	CacheDir string

	// CacheFile is the full path of the response cache database.
	CacheFile string

	// ConfigFile is the INI preferences file, named after app and
	// network so flavours never share preferences.
	ConfigFile string

	// AppLogsDir and NodeLogsDir hold the rotated log files.
	AppLogsDir  string
	NodeLogsDir string
}

// Paths derives the on-disk layout for this flavour. Derivation is pure: it
// creates no directories.
func (f *Flavour) Paths() *AppPaths {
	return f.pathsFrom(btcutil.AppDataDir(f.AppName(), false))
}

// pathsFrom is split out so tests can pin the data dir.
func (f *Flavour) pathsFrom(dataDir string) *AppPaths {
	base := filepath.Join(dataDir, f.Network.String())
	appDir := filepath.Join(base, appSubDirname)
	nodeDir := filepath.Join(base, nodeSubDirname)
	cacheDir := filepath.Join(appDir, cacheSubDirname)

	return &AppPaths{
		BasePath:    base,
		AppDir:      appDir,
		NodeDataDir: nodeDir,
		LdkDataDir: filepath.Join(
			base, f.Network.String(), nodeSubDirname,
		),
		CacheDir:  cacheDir,
		CacheFile: filepath.Join(cacheDir, CacheFileName(f.Network)),
		ConfigFile: filepath.Join(
			appDir, fmt.Sprintf(
				"%s-%s.ini", f.AppName(), f.Network,
			),
		),
		AppLogsDir:  filepath.Join(appDir, logsSubDirname),
		NodeLogsDir: filepath.Join(nodeDir, logsSubDirname),
	}
}

// EnsureDirs creates every directory in the layout that the wallet itself
// writes to. The daemon creates its own subdirectories on first run.
func (p *AppPaths) EnsureDirs() error {
	dirs := []string{
		p.BasePath, p.AppDir, p.NodeDataDir, p.CacheDir,
		p.AppLogsDir, p.NodeLogsDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("unable to create %s: %w", dir, err)
		}
	}
	return nil
}

// CacheFileName returns the cache database file name for a network. An
// unknown network falls back to a shared default so a misconfigured build
// never writes outside the cache directory.
func CacheFileName(n Network) string {
	if !n.Valid() {
		return defaultCacheName + ".sqlite"
	}
	return fmt.Sprintf("%s-%s.sqlite", cacheFilePrefix, n)
}
