package localstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/ini.v1"
)

// Well-known preference keys. They live here rather than in the settings
// service so that every subsystem reads and writes the same spelling.
const (
	// KeyWalletCreated records that the daemon wallet has been
	// initialized at least once.
	KeyWalletCreated = "isWalletCreated"

	// KeyBackupConfigured records that a cloud backup destination has
	// been configured.
	KeyBackupConfigured = "isBackupConfigured"

	// KeyKeyringDisabled marks the OS keyring as administratively
	// disabled; secrets are then prompted for on every sensitive
	// operation.
	KeyKeyringDisabled = "isKeyringDisable"

	// KeyLightningURL is the daemon base URL chosen at supervisor start.
	KeyLightningURL = "lightning_network_url"

	// KeyLdkPort is the LDK peer port handed to the daemon at spawn.
	KeyLdkPort = "ldk_port"

	// KeyNodePubKey caches the daemon's identity pubkey for display.
	KeyNodePubKey = "node_pub_key"

	// KeyDefaultFeeRate is the fee rate used for sends and the
	// create-utxos fallback.
	KeyDefaultFeeRate = "defaultFeeRate"

	// KeyDefaultExpiryTime and KeyDefaultExpiryUnit hold the default LN
	// invoice expiry.
	KeyDefaultExpiryTime = "defaultExpiryTime"
	KeyDefaultExpiryUnit = "defaultExpiryTimeUnit"

	// KeyDefaultMinConfirmation is the confirmation target for UTXO
	// creation.
	KeyDefaultMinConfirmation = "defaultMinConfirmation"

	// KeyHideExhaustedAssets and KeyShowHiddenAssets are display
	// preferences consumed by the UI layer.
	KeyHideExhaustedAssets = "isHideExhaustedAssetEnabled"
	KeyShowHiddenAssets    = "isShowHiddenAssetEnabled"

	// Endpoint-class settings. Changing any of these requires a relock
	// and unlock of the daemon before it takes effect.
	KeyIndexerURL          = "indexer_url"
	KeyProxyEndpoint       = "proxy_endpoint"
	KeyBitcoindRPCUser     = "bitcoind_rpc_username"
	KeyBitcoindRPCPassword = "bitcoind_rpc_password"
	KeyBitcoindRPCHost     = "bitcoind_rpc_host"
	KeyBitcoindRPCPort     = "bitcoind_rpc_port"
	KeyAnnounceAddress     = "announce_addresses"
	KeyAnnounceAlias       = "announce_alias"
)

// Store is a persistent flat key/value map backed by an INI file. Values are
// scalars (bool, int, string). Each write is flushed to disk immediately.
// The store serializes access within a single process; concurrent processes
// writing the same file see last-writer-wins.
type Store struct {
	mu sync.Mutex

	path string
	file *ini.File

	// basePath is the per-network directory folders are created under.
	basePath string
}

// New loads (or creates) the store at path. basePath is the per-network root
// used by CreateFolder.
func New(path, basePath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("unable to create config dir: %w", err)
	}

	file, err := ini.LooseLoad(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load config %s: %w",
			path, err)
	}

	return &Store{
		path:     path,
		file:     file,
		basePath: basePath,
	}, nil
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// Set stores a scalar value under key and flushes the file.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.file.Section("").Key(key).SetValue(fmt.Sprintf("%v", value))
	return s.flush()
}

// GetString returns the value stored under key, or ok=false when absent.
func (s *Store) GetString(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.file.Section("").HasKey(key) {
		return "", false
	}
	return s.file.Section("").Key(key).String(), true
}

// GetBool returns the boolean stored under key. A missing key or a value
// that does not parse as a boolean reads as absent, never as an error.
func (s *Store) GetBool(key string) (bool, bool) {
	raw, ok := s.GetString(key)
	if !ok {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// GetInt returns the integer stored under key, with the same type-mismatch
// semantics as GetBool.
func (s *Store) GetInt(key string) (int64, bool) {
	raw, ok := s.GetString(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// GetFloat returns the float stored under key, with the same type-mismatch
// semantics as GetBool.
func (s *Store) GetFloat(key string) (float64, bool) {
	raw, ok := s.GetString(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Remove deletes key from the store and flushes the file. Removing a missing
// key is a no-op.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.file.Section("").DeleteKey(key)
	return s.flush()
}

// AllKeys returns every key currently present.
func (s *Store) AllKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.file.Section("").KeyStrings()
}

// Clear removes every key and flushes the file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range s.file.Section("").KeyStrings() {
		s.file.Section("").DeleteKey(key)
	}
	return s.flush()
}

// CreateFolder creates (if needed) and returns a directory under the
// per-network base path.
func (s *Store) CreateFolder(name string) (string, error) {
	dir := filepath.Join(s.basePath, name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("unable to create folder %s: %w",
			dir, err)
	}
	return dir, nil
}

// flush writes the file through a temp file and rename so a crash mid-write
// never truncates the previous contents. Callers must hold mu.
func (s *Store) flush() error {
	tmp := s.path + ".tmp"
	if err := s.file.SaveTo(tmp); err != nil {
		return fmt.Errorf("unable to save config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("unable to replace config: %w", err)
	}

	log.Tracef("Flushed %s", s.path)
	return nil
}
