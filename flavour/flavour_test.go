package flavour

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPathsUnderNetworkRoot asserts that every derived path lies under the
// per-network base directory.
func TestPathsUnderNetworkRoot(t *testing.T) {
	t.Parallel()

	for _, network := range []Network{
		NetworkMainnet, NetworkTestnet, NetworkRegtest,
	} {
		f := New(network)
		paths := f.pathsFrom("/data/iriswallet")

		require.Equal(
			t, filepath.Join("/data/iriswallet", network.String()),
			paths.BasePath,
		)

		for _, p := range []string{
			paths.AppDir, paths.NodeDataDir, paths.LdkDataDir,
			paths.CacheDir, paths.CacheFile, paths.ConfigFile,
			paths.AppLogsDir, paths.NodeLogsDir,
		} {
			require.True(
				t, strings.HasPrefix(p, paths.BasePath),
				"%s escapes %s", p, paths.BasePath,
			)
		}
	}
}

// TestConfigFileEmbedsNetwork verifies that config files never collide
// between flavours.
func TestConfigFileEmbedsNetwork(t *testing.T) {
	t.Parallel()

	f := New(NetworkRegtest)
	paths := f.pathsFrom("/data/iriswallet")
	require.Equal(
		t, "iriswallet-regtest.ini", filepath.Base(paths.ConfigFile),
	)

	f.AppNameSuffix = "second"
	paths = f.pathsFrom("/data/iriswallet-second")
	require.Equal(
		t, "iriswallet-second-regtest.ini",
		filepath.Base(paths.ConfigFile),
	)
}

func TestCacheFileName(t *testing.T) {
	t.Parallel()

	require.Equal(
		t, "iris-wallet-cache-regtest.sqlite",
		CacheFileName(NetworkRegtest),
	)
	require.Equal(
		t, "iris-wallet-cache-default.sqlite",
		CacheFileName(Network("signet")),
	)
}

func TestParseNetwork(t *testing.T) {
	t.Parallel()

	n, err := ParseNetwork("testnet")
	require.NoError(t, err)
	require.Equal(t, NetworkTestnet, n)

	_, err = ParseNetwork("simnet")
	require.Error(t, err)
}

func TestLoadManifest(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "build_info.json")
	err := os.WriteFile(path, []byte(
		`{"network": "testnet", "ldk_port": 9877, `+
			`"app_name_suffix": "qa"}`,
	), 0o600)
	require.NoError(t, err)

	f, err := LoadManifest(path)
	require.NoError(t, err)
	require.Equal(t, NetworkTestnet, f.Network)
	require.EqualValues(t, 9877, f.LdkPort)
	require.Equal(t, "iriswallet-qa", f.AppName())

	_, err = LoadManifest(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestManifestRejectsUnknownNetwork(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "build_info.json")
	err := os.WriteFile(
		path, []byte(`{"network": "simnet"}`), 0o600,
	)
	require.NoError(t, err)

	_, err = LoadManifest(path)
	require.Error(t, err)
}
