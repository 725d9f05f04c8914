package backup

import (
	"context"
	"crypto/sha256"
	"encoding/base32"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rgb-tools/iris-wallet-core/events"
	"github.com/rgb-tools/iris-wallet-core/flavour"
	"github.com/rgb-tools/iris-wallet-core/localstore"
	"github.com/rgb-tools/iris-wallet-core/rln"
	"github.com/rgb-tools/iris-wallet-core/secrets"
)

const (
	// backupFolder is the folder under the app data dir where archives
	// are staged before upload.
	backupFolder = "backup"

	// backupSuffix is the archive file extension.
	backupSuffix = ".rgb_backup"

	// hashLength is how many characters of the encoded mnemonic hash
	// name the archive.
	hashLength = 10
)

var (
	// ErrNoMnemonic is returned when the mnemonic is neither supplied
	// nor stored.
	ErrNoMnemonic = errors.New("mnemonic unavailable")

	// ErrNoPassword is returned when the password is neither supplied
	// nor stored.
	ErrNoPassword = errors.New("password unavailable")

	// ErrInvalidMnemonic is returned for a malformed mnemonic phrase.
	ErrInvalidMnemonic = errors.New("invalid mnemonic phrase")
)

// CompletedEvent is published after a successful backup.
type CompletedEvent struct{}

// Topic returns the backup topic.
func (CompletedEvent) Topic() events.Topic {
	return events.TopicBackup
}

// CompletedKeyringLockedEvent is the success event for wallets running with
// the keyring disabled, so the shell can remind the user that their
// credentials are not stored anywhere.
type CompletedKeyringLockedEvent struct{}

// Topic returns the backup topic.
func (CompletedKeyringLockedEvent) Topic() events.Topic {
	return events.TopicBackup
}

// FailedEvent is published when a backup attempt fails.
type FailedEvent struct {
	Err error
}

// Topic returns the backup topic.
func (FailedEvent) Topic() events.Topic {
	return events.TopicBackup
}

// HashMnemonic derives the public archive name from a mnemonic: SHA-256,
// base32, truncated. The name identifies the wallet to the sink without
// revealing anything about the phrase.
func HashMnemonic(mnemonic string) (string, error) {
	words := strings.Fields(mnemonic)
	if len(words) != 12 && len(words) != 24 {
		return "", ErrInvalidMnemonic
	}

	digest := sha256.Sum256([]byte(mnemonic))
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).
		EncodeToString(digest[:])

	return encoded[:hashLength], nil
}

// ArchiveName returns the sink file name for a mnemonic.
func ArchiveName(mnemonic string) (string, error) {
	hashed, err := HashMnemonic(mnemonic)
	if err != nil {
		return "", err
	}
	return hashed + backupSuffix, nil
}

// Sink stores and retrieves backup archives in an external destination,
// such as a cloud drive. Implementations live outside this module.
type Sink interface {
	// Upload stores the file at filePath under fileName.
	Upload(ctx context.Context, filePath, fileName string) error

	// Download fetches fileName into destPath.
	Download(ctx context.Context, fileName, destPath string) error

	// Exists reports whether fileName is present in the sink.
	Exists(ctx context.Context, fileName string) (bool, error)
}

// Config holds the service's collaborators.
type Config struct {
	Client  *rln.Client
	Store   *localstore.Store
	Secrets secrets.Store
	Flavour *flavour.Flavour
	Bus     *events.Bus
	Sink    Sink
}

// Service drives wallet backup and restore through the daemon and a sink.
type Service struct {
	cfg Config
}

// New creates a backup service.
func New(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// credentials resolves the mnemonic and password, preferring the supplied
// values and falling back to the secret store. With the keyring disabled
// the caller must have prompted the user.
func (s *Service) credentials(mnemonic, password string) (string, string,
	error) {

	network := s.cfg.Flavour.Network

	if mnemonic == "" {
		stored, err := s.cfg.Secrets.GetSecret(
			secrets.KeyMnemonic, network,
		)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrNoMnemonic, err)
		}
		mnemonic = stored
	}

	if password == "" {
		stored, err := s.cfg.Secrets.GetSecret(
			secrets.KeyWalletPassword, network,
		)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrNoPassword, err)
		}
		password = stored
	}

	return mnemonic, password, nil
}

// Backup creates an encrypted archive through the daemon, stages it under
// the app data dir and hands it to the sink. Empty mnemonic or password
// fall back to the secret store. The daemon only serves backups while
// locked; the caller is responsible for the relock/unlock cycle.
func (s *Service) Backup(ctx context.Context, mnemonic,
	password string) error {

	if err := s.backup(ctx, mnemonic, password); err != nil {
		s.publish(FailedEvent{Err: err})
		return err
	}

	if disabled, _ := s.cfg.Store.GetBool(
		localstore.KeyKeyringDisabled,
	); disabled {
		s.publish(CompletedKeyringLockedEvent{})
	} else {
		s.publish(CompletedEvent{})
	}

	return nil
}

func (s *Service) backup(ctx context.Context, mnemonic,
	password string) error {

	log.Info("Backup process started")

	mnemonic, password, err := s.credentials(mnemonic, password)
	if err != nil {
		return err
	}

	fileName, err := ArchiveName(mnemonic)
	if err != nil {
		return err
	}

	folder, err := s.cfg.Store.CreateFolder(backupFolder)
	if err != nil {
		return err
	}
	filePath := filepath.Join(folder, fileName)

	// A stale archive from an earlier attempt would make the daemon
	// refuse to write.
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return err
	}

	err = s.cfg.Client.Backup(ctx, rln.BackupRequest{
		BackupPath: filePath,
		Password:   password,
	})
	if err != nil {
		return err
	}

	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("backup archive missing at %s: %w",
			filePath, err)
	}

	if err := s.cfg.Sink.Upload(ctx, filePath, fileName); err != nil {
		return err
	}

	log.Infof("Backup uploaded as %s", fileName)

	return s.cfg.Store.Set(localstore.KeyBackupConfigured, true)
}

// Restore downloads the wallet's archive from the sink and replays it into
// the daemon. Requires a locked daemon.
func (s *Service) Restore(ctx context.Context, mnemonic,
	password string) error {

	log.Info("Restore process started")

	if password == "" {
		return ErrNoPassword
	}

	fileName, err := ArchiveName(mnemonic)
	if err != nil {
		return err
	}

	exists, err := s.cfg.Sink.Exists(ctx, fileName)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("no backup archive %s in sink", fileName)
	}

	folder, err := s.cfg.Store.CreateFolder(backupFolder)
	if err != nil {
		return err
	}
	filePath := filepath.Join(folder, fileName)

	if err := s.cfg.Sink.Download(ctx, fileName, filePath); err != nil {
		return err
	}

	err = s.cfg.Client.Restore(ctx, rln.RestoreRequest{
		BackupPath: filePath,
		Password:   password,
	})
	if err != nil {
		return err
	}

	network := s.cfg.Flavour.Network
	if serr := s.cfg.Secrets.SetSecret(
		secrets.KeyMnemonic, mnemonic, network,
	); serr != nil {
		log.Warnf("Restored wallet but keyring write failed: %v", serr)
	} else if serr := s.cfg.Secrets.SetSecret(
		secrets.KeyWalletPassword, password, network,
	); serr != nil {
		log.Warnf("Restored wallet but keyring write failed: %v", serr)
	}

	if err := s.cfg.Store.Set(localstore.KeyWalletCreated, true); err != nil {
		return err
	}

	log.Infof("Restore from %s complete", fileName)

	return nil
}

func (s *Service) publish(event events.Event) {
	if s.cfg.Bus == nil {
		return
	}
	if err := s.cfg.Bus.Publish(event); err != nil {
		log.Warnf("Dropping backup event %T: %v", event, err)
	}
}
