// Package iriswallet assembles the headless wallet core: it owns the RLN
// daemon process, the typed RPC facade in front of it and the local state
// every embedding UI reads through the service layer.
package iriswallet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/healthcheck"
	"github.com/rgb-tools/iris-wallet-core/backup"
	"github.com/rgb-tools/iris-wallet-core/build"
	"github.com/rgb-tools/iris-wallet-core/cache"
	"github.com/rgb-tools/iris-wallet-core/events"
	"github.com/rgb-tools/iris-wallet-core/localstore"
	"github.com/rgb-tools/iris-wallet-core/rln"
	"github.com/rgb-tools/iris-wallet-core/secrets"
	"github.com/rgb-tools/iris-wallet-core/settings"
	"github.com/rgb-tools/iris-wallet-core/supervisor"
	"github.com/rgb-tools/iris-wallet-core/task"
	"github.com/rgb-tools/iris-wallet-core/unlock"
)

const (
	// daemonHealthInterval is how often the background health monitor
	// confirms the daemon's HTTP socket still answers.
	daemonHealthInterval = time.Minute

	// daemonHealthTimeout bounds a single health probe.
	daemonHealthTimeout = 30 * time.Second

	// diskHealthInterval is how often free disk space is confirmed.
	diskHealthInterval = 12 * time.Hour

	// minFreeDiskSpace is the free space ratio under which the wallet
	// shuts down rather than risk corrupting daemon state mid-write.
	minFreeDiskSpace = 0.02
)

// CacheErrorEvent is published on the cache topic whenever a cache read or
// write fails. Cache failures degrade to daemon round trips, so the event is
// informational.
type CacheErrorEvent struct {
	Err error
}

// Topic implements events.Event.
func (CacheErrorEvent) Topic() events.Topic {
	return events.TopicCache
}

// statusHolder breaks the construction cycle between the RPC client and the
// unlock coordinator: the client gates on it from the start, and the
// coordinator is plugged in once built.
type statusHolder struct {
	mtx sync.RWMutex
	src rln.StatusSource
}

// WalletState reports the tracked lock state, unknown until a source is set.
func (s *statusHolder) WalletState() rln.WalletState {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if s.src == nil {
		return rln.StateUnknown
	}
	return s.src.WalletState()
}

func (s *statusHolder) setSource(src rln.StatusSource) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.src = src
}

// App bundles every running component of the wallet core. An embedding UI
// reaches the daemon exclusively through the services exposed here.
type App struct {
	cfg *Config

	// Store is the per-network preference store.
	Store *localstore.Store

	// Secrets holds the wallet credentials in the OS keyring.
	Secrets secrets.Store

	// Bus fans out lifecycle events to subscribers.
	Bus *events.Bus

	// Client is the typed facade over the daemon's HTTP API.
	Client *rln.Client

	// Supervisor owns the daemon child process.
	Supervisor *supervisor.Supervisor

	// Coordinator drives the wallet through init and unlock.
	Coordinator *unlock.Coordinator

	// Settings reads and writes wallet preferences and node endpoints.
	Settings *settings.Service

	// Backup archives daemon state to a configured sink.
	Backup *backup.Service

	// Runner executes blocking calls off the caller goroutine.
	Runner *task.Runner

	responseCache *cache.Store
	healthMonitor *healthcheck.Monitor
}

// NewApp wires the wallet core together. BackupSink may be nil when the
// embedding application does not offer cloud backup.
func NewApp(cfg *Config, backupSink backup.Sink) (*App, error) {
	activeFlavour := cfg.ActiveFlavour

	store, err := localstore.New(cfg.Paths.ConfigFile, cfg.Paths.AppDir)
	if err != nil {
		return nil, fmt.Errorf("unable to open local store: %w", err)
	}

	// Respect a previous run's decision to stop using the keyring.
	var secretStore secrets.Store = secrets.NewKeyringStore(
		activeFlavour.AppName(),
	)
	if disabled, ok := store.GetBool(localstore.KeyKeyringDisabled); ok &&
		disabled {

		irisLog.Info("OS keyring disabled, secrets must be " +
			"re-entered on use")
		secretStore = secrets.Disabled{}
	}

	bus := events.NewBus()

	responseCache, err := cache.New(cache.Config{
		DBPath: cfg.Paths.CacheFile,
		OnError: func(err error) {
			irisLog.Warnf("Response cache degraded: %v", err)
			_ = bus.Publish(CacheErrorEvent{Err: err})
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open response cache: %w",
			err)
	}

	// The daemon port is negotiated per run. The base URL lands in the
	// local store so the facade and any helper tooling read one source.
	port, err := cfg.daemonPort()
	if err != nil {
		return nil, fmt.Errorf("no free daemon port: %w", err)
	}
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	if err := store.Set(localstore.KeyLightningURL, baseURL); err != nil {
		return nil, err
	}

	ldkPort := activeFlavour.EffectiveLdkPort()
	if activeFlavour.LdkPort == 0 {
		ldkPort, err = supervisor.FindAvailablePort(ldkPort, 50)
		if err != nil {
			return nil, fmt.Errorf("no free LDK port: %w", err)
		}
	}
	if err := store.Set(localstore.KeyLdkPort, int(ldkPort)); err != nil {
		return nil, err
	}

	status := &statusHolder{}
	client := rln.NewClient(&rln.ClientConfig{
		BaseURL: func() string {
			url, ok := store.GetString(localstore.KeyLightningURL)
			if !ok {
				return baseURL
			}
			return url
		},
		Cache:  responseCache,
		Status: status,
		DefaultFeeRate: func() float64 {
			rate, ok := store.GetFloat(
				localstore.KeyDefaultFeeRate,
			)
			if !ok {
				return rln.DefaultFeeRate
			}
			return rate
		},
	})

	spvr := supervisor.New(supervisor.Config{
		ExecutablePath: cfg.DaemonPath,
		Args: []string{
			cfg.Paths.LdkDataDir,
			"--daemon-listening-port", fmt.Sprintf("%d", port),
			"--ldk-peer-listening-port", fmt.Sprintf("%d", ldkPort),
			"--network", activeFlavour.Network.String(),
		},
		LogDir:  cfg.Paths.NodeLogsDir,
		BaseURL: baseURL,
		Bus:     bus,
	})

	coordinator := unlock.New(unlock.Config{
		Client:     client,
		Store:      store,
		Secrets:    secretStore,
		Flavour:    activeFlavour,
		Bus:        bus,
		Supervisor: spvr,
	})
	status.setSource(coordinator)

	settingsSvc := settings.New(settings.Config{
		Client:  client,
		Store:   store,
		Secrets: secretStore,
		Flavour: activeFlavour,
		Cycler:  coordinator,
	})

	var backupSvc *backup.Service
	if backupSink != nil {
		backupSvc = backup.New(backup.Config{
			Client:  client,
			Store:   store,
			Secrets: secretStore,
			Flavour: activeFlavour,
			Bus:     bus,
			Sink:    backupSink,
		})
	}

	app := &App{
		cfg:           cfg,
		Store:         store,
		Secrets:       secretStore,
		Bus:           bus,
		Client:        client,
		Supervisor:    spvr,
		Coordinator:   coordinator,
		Settings:      settingsSvc,
		Backup:        backupSvc,
		Runner:        task.NewRunner(task.Config{}),
		responseCache: responseCache,
	}
	app.healthMonitor = healthcheck.NewMonitor(&healthcheck.Config{
		Checks: []*healthcheck.Observation{
			healthcheck.NewObservation(
				"daemon socket", app.checkDaemonSocket,
				daemonHealthInterval, daemonHealthTimeout,
				time.Minute, 3,
			),
			healthcheck.NewObservation(
				"disk space", app.checkDiskSpace,
				diskHealthInterval, daemonHealthTimeout,
				time.Minute, 2,
			),
		},
		Shutdown: irisLog.Criticalf,
	})

	return app, nil
}

// checkDaemonSocket confirms the daemon still answers HTTP. Any response
// counts, a locked wallet answers 403 but is alive.
func (a *App) checkDaemonSocket() error {
	ctx, cancel := context.WithTimeout(
		context.Background(), daemonHealthTimeout,
	)
	defer cancel()

	url, _ := a.Store.GetString(localstore.KeyLightningURL)
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, url+rln.EndpointNodeInfo, nil,
	)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon socket unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

// checkDiskSpace confirms the data directory's volume has headroom left.
func (a *App) checkDiskSpace() error {
	free, err := healthcheck.AvailableDiskSpaceRatio(a.cfg.Paths.BasePath)
	if err != nil {
		return err
	}
	if free < minFreeDiskSpace {
		return fmt.Errorf("only %.1f%% disk space remaining",
			free*100)
	}
	return nil
}

// ResetAppData wipes this network's wallet state: preferences, cached
// responses, daemon and LDK data directories, and the stored credentials.
// The daemon must be stopped before calling this; it is intended for the
// explicit wallet-reset flow and cannot be undone.
func (a *App) ResetAppData() error {
	if err := a.Store.Clear(); err != nil {
		return fmt.Errorf("unable to clear preferences: %w", err)
	}

	network := a.cfg.ActiveFlavour.Network
	for _, key := range []string{
		secrets.KeyMnemonic, secrets.KeyWalletPassword,
	} {
		err := a.Secrets.DeleteSecret(key, network)
		if err != nil && !errors.Is(err, secrets.ErrKeyringDisabled) {
			irisLog.Warnf("Unable to delete secret %s: %v", key,
				err)
		}
	}

	for _, dir := range []string{
		a.cfg.Paths.NodeDataDir, a.cfg.Paths.LdkDataDir,
		a.cfg.Paths.CacheDir,
	} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("unable to remove %s: %w", dir, err)
		}
	}

	irisLog.Infof("Wallet state for %s wiped", network)
	return nil
}

// Start brings up the event bus, the task runner, the coordinator and the
// daemon process, in that order, so every subscriber is listening before the
// first supervisor event fires.
func (a *App) Start() error {
	if err := a.Bus.Start(); err != nil {
		return err
	}
	if err := a.Runner.Start(); err != nil {
		return err
	}
	if err := a.Coordinator.Start(); err != nil {
		return err
	}
	if err := a.Supervisor.Start(); err != nil {
		return err
	}
	return a.healthMonitor.Start()
}

// Stop tears the wallet core down. The daemon is asked to exit first and
// the bounded close wait runs to its verdict before the cache and the bus
// go away, so the close outcome events still reach subscribers.
func (a *App) Stop() error {
	if err := a.healthMonitor.Stop(); err != nil {
		irisLog.Warnf("Health monitor stop: %v", err)
	}

	a.Coordinator.Stop()
	_ = a.Runner.Stop()

	err := a.Supervisor.Stop()
	switch {
	case errors.Is(err, supervisor.ErrNotRunning):
		err = nil

	case err != nil:
		irisLog.Errorf("Daemon stop: %v", err)

	default:
		if err = a.Supervisor.WaitForClose(); err != nil {
			irisLog.Errorf("Daemon close: %v", err)
		}
	}

	if cerr := a.responseCache.Close(); cerr != nil {
		irisLog.Warnf("Cache close: %v", cerr)
	}
	_ = a.Bus.Stop()
	a.Supervisor.Shutdown()

	if logRotator != nil {
		logRotator.Close()
	}

	return err
}

// Main is the true entry point for the wallet core. It is factored out of
// main() so embedding applications and tests can drive the same lifecycle,
// and so defers run before os.Exit.
func Main(cfg *Config, backupSink backup.Sink,
	shutdownChan <-chan struct{}) error {

	irisLog.Infof("Version %s, network=%s", build.Version(),
		cfg.ActiveFlavour.Network)

	app, err := NewApp(cfg, backupSink)
	if err != nil {
		return err
	}

	// The bus must be running before we subscribe; starting it here is
	// fine since Start is idempotent.
	if err := app.Bus.Start(); err != nil {
		return err
	}
	walletSub, err := app.Bus.Subscribe(events.TopicWallet)
	if err != nil {
		return err
	}

	if err := app.Start(); err != nil {
		return err
	}
	defer func() {
		if err := app.Stop(); err != nil {
			irisLog.Errorf("Shutdown: %v", err)
		}
	}()

	// Block until a signal arrives, a component requests shutdown or the
	// daemon is declared lost.
	for {
		select {
		case <-shutdownChan:
			irisLog.Info("Received shutdown request, stopping " +
				"wallet core")
			return nil

		case event, ok := <-walletSub.Events():
			if !ok {
				return nil
			}
			if crash, isCrash := event.(unlock.CrashEvent); isCrash {
				return fmt.Errorf("daemon lost: %w", crash.Err)
			}
		}
	}
}
