package iriswallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rgb-tools/iris-wallet-core/flavour"
	"github.com/rgb-tools/iris-wallet-core/rln"
	"github.com/stretchr/testify/require"
)

// TestResolveFlavourFromNetwork checks the dev path: the network comes from
// the command line.
func TestResolveFlavourFromNetwork(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Network = "regtest"
	cfg.LdkPort = 9999
	cfg.AppName = "second"

	resolved, err := resolveFlavour(&cfg)
	require.NoError(t, err)
	require.Equal(t, flavour.NetworkRegtest, resolved.Network)
	require.Equal(t, uint16(9999), resolved.LdkPort)
	require.Equal(t, "iriswallet-second", resolved.AppName())
}

// TestResolveFlavourRequiresNetwork checks that a dev run without a network
// flag is rejected.
func TestResolveFlavourRequiresNetwork(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	_, err := resolveFlavour(&cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "--network")
}

// TestResolveFlavourFromManifest checks that an explicit manifest wins over
// the network flags.
func TestResolveFlavourFromManifest(t *testing.T) {
	t.Parallel()

	manifest := filepath.Join(t.TempDir(), "build_info.json")
	require.NoError(t, os.WriteFile(
		manifest, []byte(`{"network": "testnet", "ldk_port": 9800}`),
		0600,
	))

	cfg := DefaultConfig()
	cfg.Network = "regtest"
	cfg.Manifest = manifest

	resolved, err := resolveFlavour(&cfg)
	require.NoError(t, err)
	require.Equal(t, flavour.NetworkTestnet, resolved.Network)
	require.Equal(t, uint16(9800), resolved.LdkPort)
}

// TestResolveFlavourMissingManifest checks that a dangling --manifest path
// is an error rather than a silent fallback.
func TestResolveFlavourMissingManifest(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Manifest = filepath.Join(t.TempDir(), "missing.json")

	_, err := resolveFlavour(&cfg)
	require.Error(t, err)
}

type fixedStatus rln.WalletState

func (s fixedStatus) WalletState() rln.WalletState {
	return rln.WalletState(s)
}

// TestStatusHolder checks the construction-cycle breaker: unknown until a
// source is plugged in, delegating afterwards.
func TestStatusHolder(t *testing.T) {
	t.Parallel()

	holder := &statusHolder{}
	require.Equal(t, rln.StateUnknown, holder.WalletState())

	holder.setSource(fixedStatus(rln.StateUnlocked))
	require.Equal(t, rln.StateUnlocked, holder.WalletState())
}
