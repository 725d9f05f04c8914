package secrets

import (
	"testing"

	"github.com/rgb-tools/iris-wallet-core/flavour"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringRoundTrip(t *testing.T) {
	keyring.MockInit()

	store := NewKeyringStore("iriswallet")

	err := store.SetSecret(
		KeyWalletPassword, "pw", flavour.NetworkRegtest,
	)
	require.NoError(t, err)

	got, err := store.GetSecret(KeyWalletPassword, flavour.NetworkRegtest)
	require.NoError(t, err)
	require.Equal(t, "pw", got)

	// The same key on another network is a distinct secret.
	_, err = store.GetSecret(KeyWalletPassword, flavour.NetworkTestnet)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestKeyringDelete(t *testing.T) {
	keyring.MockInit()

	store := NewKeyringStore("iriswallet")
	require.NoError(t, store.SetSecret(
		KeyMnemonic, "abandon ability", flavour.NetworkRegtest,
	))

	require.NoError(t, store.DeleteSecret(
		KeyMnemonic, flavour.NetworkRegtest,
	))

	_, err := store.GetSecret(KeyMnemonic, flavour.NetworkRegtest)
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting again is a no-op.
	require.NoError(t, store.DeleteSecret(
		KeyMnemonic, flavour.NetworkRegtest,
	))
}

func TestGlobalKeysHaveNoNetworkSuffix(t *testing.T) {
	require.Equal(t, "nativeLoginEnabled", account(
		KeyNativeLoginEnabled, "",
	))
	require.Equal(t, "wallet_password_regtest", account(
		KeyWalletPassword, flavour.NetworkRegtest,
	))
}

// TestDisabledStore asserts the contract for the administratively disabled
// keyring: writes err, reads are absent.
func TestDisabledStore(t *testing.T) {
	t.Parallel()

	var store Disabled

	err := store.SetSecret(KeyWalletPassword, "pw", flavour.NetworkRegtest)
	require.ErrorIs(t, err, ErrKeyringDisabled)

	_, err = store.GetSecret(KeyWalletPassword, flavour.NetworkRegtest)
	require.ErrorIs(t, err, ErrNotFound)
}

type fakePrompter struct {
	password string
	mnemonic string
	calls    int
}

func (f *fakePrompter) PromptCredentials(string) (*Credentials, error) {
	f.calls++
	return &Credentials{Mnemonic: f.mnemonic, Password: f.password}, nil
}

func (f *fakePrompter) PromptPassword(string) (string, error) {
	f.calls++
	return f.password, nil
}

func TestPromptStore(t *testing.T) {
	t.Parallel()

	prompter := &fakePrompter{password: "pw", mnemonic: "abandon"}
	store := NewPromptStore(prompter)

	// Writes succeed but persist nothing.
	require.NoError(t, store.SetSecret(
		KeyWalletPassword, "ignored", flavour.NetworkRegtest,
	))

	pw, err := store.GetSecret(KeyWalletPassword, flavour.NetworkRegtest)
	require.NoError(t, err)
	require.Equal(t, "pw", pw)

	mnemonic, err := store.GetSecret(KeyMnemonic, flavour.NetworkRegtest)
	require.NoError(t, err)
	require.Equal(t, "abandon", mnemonic)

	// Every read hits the prompter.
	require.Equal(t, 2, prompter.calls)

	// Unknown keys are absent.
	_, err = store.GetSecret("unknown", flavour.NetworkRegtest)
	require.ErrorIs(t, err, ErrNotFound)
}
