package settings

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rgb-tools/iris-wallet-core/flavour"
	"github.com/rgb-tools/iris-wallet-core/localstore"
	"github.com/rgb-tools/iris-wallet-core/rln"
	"github.com/rgb-tools/iris-wallet-core/secrets"
	"github.com/rgb-tools/iris-wallet-core/unlock"
)

// Built-in preference defaults, used when the user never touched a setting.
const (
	DefaultFeeRate         = 5.0
	DefaultExpiryTime      = 3
	DefaultExpiryUnit      = "Hours"
	DefaultMinConfirmation = 1
)

// Snapshot is the page-load view of every setting.
type Snapshot struct {
	FeeRate         float64
	ExpiryTime      int
	ExpiryUnit      string
	MinConfirmation int

	IndexerURL      string
	ProxyEndpoint   string
	BitcoindHost    string
	BitcoindPort    int
	AnnounceAddress string
	AnnounceAlias   string

	NativeAuthEnabled   bool
	NativeLoginEnabled  bool
	HideExhaustedAssets bool
	ShowHiddenAssets    bool
	KeyringDisabled     bool
}

// LockCycler relocks and unlocks the daemon around endpoint changes.
// Satisfied by the unlock coordinator.
type LockCycler interface {
	EnsureLocked(ctx context.Context) error
	Unlock(ctx context.Context, password string) (unlock.Intent, error)
}

// Authenticator performs an OS-level identity check before sensitive
// toggles. A nil error means the user passed.
type Authenticator func(ctx context.Context) error

// Config holds the service's collaborators.
type Config struct {
	Client       *rln.Client
	Store        *localstore.Store
	Secrets      secrets.Store
	Flavour      *flavour.Flavour
	Cycler       LockCycler
	Authenticate Authenticator
}

// Service reads and writes wallet settings. Preference-class settings go
// straight to the local store; endpoint-class settings are validated
// against the daemon and applied with a relock/unlock cycle.
type Service struct {
	cfg Config
}

// New creates a settings service.
func New(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// Snapshot assembles the current settings view, applying built-in and
// per-network defaults for anything unset.
func (s *Service) Snapshot() Snapshot {
	store := s.cfg.Store
	defaults := s.cfg.Flavour.Defaults()

	snap := Snapshot{
		FeeRate:         DefaultFeeRate,
		ExpiryTime:      DefaultExpiryTime,
		ExpiryUnit:      DefaultExpiryUnit,
		MinConfirmation: DefaultMinConfirmation,
		IndexerURL:      defaults.IndexerURL,
		ProxyEndpoint:   defaults.ProxyEndpoint,
		BitcoindHost:    defaults.BitcoindRPCHost,
		BitcoindPort:    int(defaults.BitcoindRPCPort),
		AnnounceAddress: defaults.AnnounceAddress,
		AnnounceAlias:   defaults.AnnounceAlias,
	}

	if v, ok := store.GetFloat(localstore.KeyDefaultFeeRate); ok {
		snap.FeeRate = v
	}
	if v, ok := store.GetInt(localstore.KeyDefaultExpiryTime); ok {
		snap.ExpiryTime = int(v)
	}
	if v, ok := store.GetString(localstore.KeyDefaultExpiryUnit); ok {
		snap.ExpiryUnit = v
	}
	if v, ok := store.GetInt(localstore.KeyDefaultMinConfirmation); ok {
		snap.MinConfirmation = int(v)
	}
	if v, ok := store.GetString(localstore.KeyIndexerURL); ok {
		snap.IndexerURL = v
	}
	if v, ok := store.GetString(localstore.KeyProxyEndpoint); ok {
		snap.ProxyEndpoint = v
	}
	if v, ok := store.GetString(localstore.KeyBitcoindRPCHost); ok {
		snap.BitcoindHost = v
	}
	if v, ok := store.GetInt(localstore.KeyBitcoindRPCPort); ok {
		snap.BitcoindPort = int(v)
	}
	if v, ok := store.GetString(localstore.KeyAnnounceAddress); ok {
		snap.AnnounceAddress = v
	}
	if v, ok := store.GetString(localstore.KeyAnnounceAlias); ok {
		snap.AnnounceAlias = v
	}
	if v, ok := store.GetBool(localstore.KeyHideExhaustedAssets); ok {
		snap.HideExhaustedAssets = v
	}
	if v, ok := store.GetBool(localstore.KeyShowHiddenAssets); ok {
		snap.ShowHiddenAssets = v
	}
	if v, ok := store.GetBool(localstore.KeyKeyringDisabled); ok {
		snap.KeyringDisabled = v
	}

	snap.NativeAuthEnabled = s.secretBool(secrets.KeyNativeAuthEnabled)
	snap.NativeLoginEnabled = s.secretBool(secrets.KeyNativeLoginEnabled)

	return snap
}

func (s *Service) secretBool(key string) bool {
	value, err := s.cfg.Secrets.GetSecret(key, s.cfg.Flavour.Network)
	if err != nil {
		return false
	}
	enabled, _ := strconv.ParseBool(value)
	return enabled
}

// Preference-class settings write straight through to the local store.

// SetDefaultFeeRate stores the fee rate used for sends and UTXO creation.
func (s *Service) SetDefaultFeeRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("fee rate must be positive, got %v", rate)
	}
	return s.cfg.Store.Set(localstore.KeyDefaultFeeRate, rate)
}

// SetDefaultExpiry stores the default LN invoice expiry.
func (s *Service) SetDefaultExpiry(value int, unit string) error {
	switch unit {
	case "Minutes", "Hours", "Days":
	default:
		return fmt.Errorf("unknown expiry unit %q", unit)
	}

	if err := s.cfg.Store.Set(
		localstore.KeyDefaultExpiryTime, value,
	); err != nil {
		return err
	}
	return s.cfg.Store.Set(localstore.KeyDefaultExpiryUnit, unit)
}

// SetDefaultMinConfirmation stores the confirmation target for UTXO
// creation.
func (s *Service) SetDefaultMinConfirmation(confs int) error {
	if confs < 1 {
		return fmt.Errorf("min confirmation must be at least 1, "+
			"got %d", confs)
	}
	return s.cfg.Store.Set(localstore.KeyDefaultMinConfirmation, confs)
}

// SetHideExhaustedAssets stores the exhausted-assets display preference.
func (s *Service) SetHideExhaustedAssets(hide bool) error {
	return s.cfg.Store.Set(localstore.KeyHideExhaustedAssets, hide)
}

// SetShowHiddenAssets stores the hidden-assets display preference.
func (s *Service) SetShowHiddenAssets(show bool) error {
	return s.cfg.Store.Set(localstore.KeyShowHiddenAssets, show)
}

// Endpoint-class settings. The daemon reads these at unlock time, so every
// change is validated while locked, persisted, then applied with a fresh
// unlock. On failure the stored value is rolled back and the daemon is
// unlocked with the previous configuration.

// SetIndexerURL validates and applies a new electrum indexer URL.
func (s *Service) SetIndexerURL(ctx context.Context, url,
	password string) error {

	return s.setEndpoints(ctx, password,
		func(ctx context.Context) error {
			_, err := s.cfg.Client.CheckIndexerURL(ctx, url)
			return err
		},
		change{key: localstore.KeyIndexerURL, value: url},
	)
}

// SetProxyEndpoint validates and applies a new RGB proxy endpoint.
func (s *Service) SetProxyEndpoint(ctx context.Context, endpoint,
	password string) error {

	return s.setEndpoints(ctx, password,
		func(ctx context.Context) error {
			return s.cfg.Client.CheckProxyEndpoint(ctx, endpoint)
		},
		change{key: localstore.KeyProxyEndpoint, value: endpoint},
	)
}

// SetBitcoindRPC applies new bitcoind RPC credentials. The daemon has no
// check endpoint for these; a failing unlock rolls them back.
func (s *Service) SetBitcoindRPC(ctx context.Context, user, pass, host string,
	port int, password string) error {

	return s.setEndpoints(ctx, password, nil,
		change{key: localstore.KeyBitcoindRPCUser, value: user},
		change{key: localstore.KeyBitcoindRPCPassword, value: pass},
		change{key: localstore.KeyBitcoindRPCHost, value: host},
		change{key: localstore.KeyBitcoindRPCPort, value: port},
	)
}

// SetAnnounceAddress applies a new announce address.
func (s *Service) SetAnnounceAddress(ctx context.Context, addr,
	password string) error {

	return s.setEndpoints(ctx, password, nil,
		change{key: localstore.KeyAnnounceAddress, value: addr},
	)
}

// SetAnnounceAlias applies a new announce alias.
func (s *Service) SetAnnounceAlias(ctx context.Context, alias,
	password string) error {

	return s.setEndpoints(ctx, password, nil,
		change{key: localstore.KeyAnnounceAlias, value: alias},
	)
}

// change is one pending key write with enough state to undo it.
type change struct {
	key   string
	value any

	prev    string
	hadPrev bool
}

// setEndpoints runs the endpoint-change sequence: relock, optional daemon
// validation, persist, unlock. Any failure restores the previous values and
// brings the daemon back up on the old configuration.
func (s *Service) setEndpoints(ctx context.Context, password string,
	check func(ctx context.Context) error, changes ...change) error {

	store := s.cfg.Store

	if err := s.cfg.Cycler.EnsureLocked(ctx); err != nil {
		return fmt.Errorf("locking node: %w", err)
	}

	if check != nil {
		if err := check(ctx); err != nil {
			s.unlockBack(ctx, password)
			return err
		}
	}

	for i := range changes {
		changes[i].prev, changes[i].hadPrev = store.GetString(
			changes[i].key,
		)
		if err := store.Set(
			changes[i].key, changes[i].value,
		); err != nil {
			s.rollback(changes[:i])
			s.unlockBack(ctx, password)
			return err
		}
	}

	if _, err := s.cfg.Cycler.Unlock(ctx, password); err != nil {
		log.Warnf("Unlock failed on new endpoints, rolling back: %v",
			err)

		s.rollback(changes)
		s.unlockBack(ctx, password)
		return err
	}

	return nil
}

// rollback restores the stored values recorded in changes.
func (s *Service) rollback(changes []change) {
	for _, ch := range changes {
		var err error
		if ch.hadPrev {
			err = s.cfg.Store.Set(ch.key, ch.prev)
		} else {
			err = s.cfg.Store.Remove(ch.key)
		}
		if err != nil {
			log.Errorf("Rollback of %s failed: %v", ch.key, err)
		}
	}
}

// unlockBack brings the daemon back up after a failed change so the wallet
// is not left locked.
func (s *Service) unlockBack(ctx context.Context, password string) {
	if _, err := s.cfg.Cycler.Unlock(ctx, password); err != nil {
		log.Errorf("Re-unlock after failed endpoint change: %v", err)
	}
}

// Auth toggles. Both require a successful OS-level authentication and a
// usable keyring; with the keyring disabled there is nowhere to store the
// flag.

// SetNativeAuthEnabled toggles the per-operation native authentication
// requirement.
func (s *Service) SetNativeAuthEnabled(ctx context.Context,
	enabled bool) error {

	return s.setAuthToggle(ctx, secrets.KeyNativeAuthEnabled, enabled)
}

// SetNativeLoginEnabled toggles native authentication at app login.
func (s *Service) SetNativeLoginEnabled(ctx context.Context,
	enabled bool) error {

	return s.setAuthToggle(ctx, secrets.KeyNativeLoginEnabled, enabled)
}

func (s *Service) setAuthToggle(ctx context.Context, key string,
	enabled bool) error {

	if disabled, _ := s.cfg.Store.GetBool(
		localstore.KeyKeyringDisabled,
	); disabled {
		return secrets.ErrKeyringDisabled
	}

	if s.cfg.Authenticate != nil {
		if err := s.cfg.Authenticate(ctx); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}

	return s.cfg.Secrets.SetSecret(
		key, strconv.FormatBool(enabled), s.cfg.Flavour.Network,
	)
}
