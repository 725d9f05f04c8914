package secrets

import (
	"errors"
	"fmt"

	"github.com/rgb-tools/iris-wallet-core/flavour"
	"github.com/zalando/go-keyring"
)

// Secret key names. The effective keyring account is <key>_<network> so the
// same machine can hold secrets for several flavours.
const (
	// KeyMnemonic is the daemon wallet's mnemonic phrase.
	KeyMnemonic = "mnemonic"

	// KeyWalletPassword is the password that unlocks the daemon wallet.
	KeyWalletPassword = "wallet_password"

	// KeyNativeLoginEnabled and KeyNativeAuthEnabled are the OS-level
	// authentication toggles. They have no network suffix.
	KeyNativeLoginEnabled = "nativeLoginEnabled"
	KeyNativeAuthEnabled  = "isNativeAuthenticationEnabled"
)

var (
	// ErrNotFound is returned when a secret is absent from the store.
	ErrNotFound = errors.New("secret not found")

	// ErrKeyringDisabled is returned from writes when the keyring has
	// been administratively disabled. Reads return ErrNotFound instead
	// so callers fall through to prompting.
	ErrKeyringDisabled = errors.New("keyring disabled or inaccessible")
)

// Store holds per-network secrets on behalf of the user. Implementations
// never log secret values. Reads of missing entries return ErrNotFound,
// never an empty string.
type Store interface {
	// SetSecret stores value under key for the given network.
	SetSecret(key, value string, network flavour.Network) error

	// GetSecret retrieves the value stored under key for the given
	// network.
	GetSecret(key string, network flavour.Network) (string, error)

	// DeleteSecret removes the value stored under key for the given
	// network.
	DeleteSecret(key string, network flavour.Network) error
}

// account builds the effective storage key. Global toggles pass an empty
// network and use the bare key.
func account(key string, network flavour.Network) string {
	if network == "" {
		return key
	}
	return fmt.Sprintf("%s_%s", key, network)
}

// KeyringStore keeps secrets in the OS keyring, namespaced by the
// application name (the keyring "service").
type KeyringStore struct {
	service string
}

// NewKeyringStore returns a Store backed by the OS keyring under the given
// service name.
func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{service: service}
}

// SetSecret stores the value and reads it back to confirm the backend
// actually persisted it. Some Linux keyring daemons accept writes they then
// drop.
func (k *KeyringStore) SetSecret(key, value string,
	network flavour.Network) error {

	acct := account(key, network)
	if err := keyring.Set(k.service, acct, value); err != nil {
		log.Errorf("Keyring write failed for %s: %v", acct, err)
		return fmt.Errorf("%w: %v", ErrKeyringDisabled, err)
	}

	if _, err := keyring.Get(k.service, acct); err != nil {
		log.Errorf("Keyring readback failed for %s: %v", acct, err)
		return fmt.Errorf("%w: %v", ErrKeyringDisabled, err)
	}

	log.Debugf("Stored secret %s", acct)
	return nil
}

// GetSecret retrieves a secret from the OS keyring.
func (k *KeyringStore) GetSecret(key string,
	network flavour.Network) (string, error) {

	value, err := keyring.Get(k.service, account(key, network))
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return "", ErrNotFound

	case err != nil:
		log.Errorf("Keyring read failed for %s: %v",
			account(key, network), err)
		return "", fmt.Errorf("%w: %v", ErrKeyringDisabled, err)
	}

	return value, nil
}

// DeleteSecret removes a secret from the OS keyring. Deleting a missing
// secret is a no-op.
func (k *KeyringStore) DeleteSecret(key string,
	network flavour.Network) error {

	err := keyring.Delete(k.service, account(key, network))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrKeyringDisabled, err)
	}
	return nil
}

// Disabled is the Store used when the keyring has been administratively
// disabled: writes fail, reads are absent, so every caller falls back to
// prompting the user.
type Disabled struct{}

// SetSecret always fails on a disabled store.
func (Disabled) SetSecret(string, string, flavour.Network) error {
	return ErrKeyringDisabled
}

// GetSecret always reports absence on a disabled store.
func (Disabled) GetSecret(string, flavour.Network) (string, error) {
	return "", ErrNotFound
}

// DeleteSecret always fails on a disabled store.
func (Disabled) DeleteSecret(string, flavour.Network) error {
	return ErrKeyringDisabled
}
