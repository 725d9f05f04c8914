package unlock

import (
	"context"
	"errors"
	"sync"

	"github.com/rgb-tools/iris-wallet-core/events"
	"github.com/rgb-tools/iris-wallet-core/flavour"
	"github.com/rgb-tools/iris-wallet-core/localstore"
	"github.com/rgb-tools/iris-wallet-core/rln"
	"github.com/rgb-tools/iris-wallet-core/secrets"
	"github.com/rgb-tools/iris-wallet-core/supervisor"
)

// Intent is a navigation intent handed to the UI shell. The coordinator
// decides where the user lands, the shell only renders it.
type Intent uint8

const (
	// IntentWelcome starts the new-wallet flow.
	IntentWelcome Intent = iota

	// IntentSetPassword asks the user to choose a wallet password.
	IntentSetPassword

	// IntentEnterPassword prompts for the existing wallet password.
	IntentEnterPassword

	// IntentShowMain opens the wallet proper.
	IntentShowMain
)

// String returns a stable name for the intent, used in logs.
func (i Intent) String() string {
	switch i {
	case IntentWelcome:
		return "welcome"
	case IntentSetPassword:
		return "set_password"
	case IntentEnterPassword:
		return "enter_password"
	case IntentShowMain:
		return "show_main"
	default:
		return "unknown"
	}
}

// NavigationEvent carries an intent and, for error-driven redirects, the
// error that caused it.
type NavigationEvent struct {
	Intent Intent
	Err    error
}

// Topic returns the wallet topic.
func (NavigationEvent) Topic() events.Topic {
	return events.TopicWallet
}

// CrashEvent is published when the node failed twice in a row and the
// single automatic restart is spent.
type CrashEvent struct {
	Err error
}

// Topic returns the wallet topic.
func (CrashEvent) Topic() events.Topic {
	return events.TopicWallet
}

// NodeStarter restarts the daemon process. Satisfied by the supervisor.
type NodeStarter interface {
	Start() error
}

// Config holds the coordinator's collaborators.
type Config struct {
	Client     *rln.Client
	Store      *localstore.Store
	Secrets    secrets.Store
	Flavour    *flavour.Flavour
	Bus        *events.Bus
	Supervisor NodeStarter
}

// Coordinator drives the wallet through the locked/unlocked lifecycle. It
// reacts to supervisor events, decides the first page shown to the user and
// tracks the lock state the RPC facade gates on.
type Coordinator struct {
	cfg Config

	mtx   sync.RWMutex
	state rln.WalletState

	// restartAttempted flips after the one automatic restart the crash
	// policy allows.
	restartAttempted bool

	quit chan struct{}
	wg   sync.WaitGroup
}

// New creates a coordinator. The wallet state starts Unknown until the
// first daemon observation.
func New(cfg Config) *Coordinator {
	return &Coordinator{
		cfg:  cfg,
		quit: make(chan struct{}),
	}
}

// WalletState reports the tracked lock state. This makes the coordinator
// the rln.StatusSource the facade gates on.
func (c *Coordinator) WalletState() rln.WalletState {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.state
}

func (c *Coordinator) setState(state rln.WalletState) {
	c.mtx.Lock()
	c.state = state
	c.mtx.Unlock()
}

// Start subscribes to supervisor events and reacts until Stop is called.
func (c *Coordinator) Start() error {
	sub, err := c.cfg.Bus.Subscribe(events.TopicSupervisor)
	if err != nil {
		return err
	}

	c.wg.Add(1)
	go c.eventLoop(sub)

	return nil
}

// Stop ends the event loop.
func (c *Coordinator) Stop() {
	close(c.quit)
	c.wg.Wait()
}

func (c *Coordinator) eventLoop(sub *events.Subscription) {
	defer c.wg.Done()
	defer sub.Cancel()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return
			}

			switch e := event.(type) {
			case supervisor.StartedEvent:
				c.onNodeStarted(context.Background())

			case supervisor.ErrorEvent:
				c.onNodeError(e)
			}

		case <-sub.Quit():
			return

		case <-c.quit:
			return
		}
	}
}

// onNodeStarted applies the first-page decision table once the daemon's
// socket answers.
func (c *Coordinator) onNodeStarted(ctx context.Context) {
	c.setState(rln.StateLocked)

	created, _ := c.cfg.Store.GetBool(localstore.KeyWalletCreated)
	if !created {
		log.Info("No wallet created yet, showing welcome")
		c.navigate(IntentWelcome, nil)
		return
	}

	disabled, _ := c.cfg.Store.GetBool(localstore.KeyKeyringDisabled)
	if disabled {
		log.Info("Keyring disabled, prompting for password")
		c.navigate(IntentEnterPassword, nil)
		return
	}

	password, err := c.cfg.Secrets.GetSecret(
		secrets.KeyWalletPassword, c.cfg.Flavour.Network,
	)
	if err != nil {
		log.Warnf("Stored password unavailable: %v", err)
		c.navigate(IntentEnterPassword, err)
		return
	}

	c.navigate(c.Unlock(ctx, password))
}

// onNodeError applies the crash policy: one automatic restart, then a crash
// report.
func (c *Coordinator) onNodeError(e supervisor.ErrorEvent) {
	c.setState(rln.StateUnknown)

	err := errors.New(e.Message)

	c.mtx.Lock()
	first := !c.restartAttempted
	c.restartAttempted = true
	c.mtx.Unlock()

	if first && c.cfg.Supervisor != nil {
		log.Warnf("Node failed (code=%d), attempting one restart",
			e.Code)

		if rerr := c.cfg.Supervisor.Start(); rerr == nil {
			return
		} else {
			err = rerr
		}
	}

	log.Errorf("Node failed and restart budget is spent: %v", err)
	c.publish(CrashEvent{Err: err})
}

// Unlock attempts to unlock the wallet with the given password and returns
// the resulting navigation intent. Error classes map to pages: a wallet
// that was never initialized sends the user to set a password, a bad
// password re-prompts, an already unlocked daemon is relocked and retried
// once.
func (c *Coordinator) Unlock(ctx context.Context,
	password string) (Intent, error) {

	intent, err := c.unlockOnce(ctx, password)
	if err != nil && rln.IsKind(err, rln.KindNodeUnlocked) {
		log.Info("Daemon already unlocked, relocking to retry")

		if lerr := c.EnsureLocked(ctx); lerr != nil {
			return IntentEnterPassword, lerr
		}
		intent, err = c.unlockOnce(ctx, password)
	}

	return intent, err
}

func (c *Coordinator) unlockOnce(ctx context.Context,
	password string) (Intent, error) {

	err := c.cfg.Client.Unlock(ctx, c.buildUnlockRequest(password))
	switch {
	case err == nil:
		c.setState(rln.StateUnlocked)
		return IntentShowMain, nil

	case rln.IsKind(err, rln.KindNotInitialized):
		return IntentSetPassword, err

	case rln.IsKind(err, rln.KindWrongPassword):
		return IntentEnterPassword, err

	default:
		return IntentEnterPassword, err
	}
}

// EnsureLocked locks the daemon if it is not already locked. Used before
// operations the daemon only accepts while locked.
func (c *Coordinator) EnsureLocked(ctx context.Context) error {
	err := c.cfg.Client.Lock(ctx)
	if err != nil && !rln.IsKind(err, rln.KindNodeLocked) {
		return err
	}

	c.setState(rln.StateLocked)
	return nil
}

// CreateWallet initializes a new wallet, stores its credentials when the
// keyring is usable, and unlocks it. The returned mnemonic is shown to the
// user exactly once.
func (c *Coordinator) CreateWallet(ctx context.Context,
	password string) (string, error) {

	resp, err := c.cfg.Client.Init(ctx, rln.InitRequest{
		Password: password,
	})
	if err != nil {
		return "", err
	}

	network := c.cfg.Flavour.Network
	serr := c.cfg.Secrets.SetSecret(
		secrets.KeyMnemonic, resp.Mnemonic, network,
	)
	if serr == nil {
		serr = c.cfg.Secrets.SetSecret(
			secrets.KeyWalletPassword, password, network,
		)
	}

	// A dead keyring downgrades the wallet to prompt-every-time mode
	// instead of failing creation.
	if serr != nil {
		log.Warnf("Keyring unusable, disabling secret storage: %v",
			serr)
		if err := c.cfg.Store.Set(
			localstore.KeyKeyringDisabled, true,
		); err != nil {
			return "", err
		}
	}

	if err := c.cfg.Store.Set(localstore.KeyWalletCreated, true); err != nil {
		return "", err
	}

	intent, err := c.Unlock(ctx, password)
	c.navigate(intent, err)
	if err != nil {
		return resp.Mnemonic, err
	}

	return resp.Mnemonic, nil
}

// buildUnlockRequest assembles the unlock payload from stored settings,
// falling back to the flavour's built-in defaults.
func (c *Coordinator) buildUnlockRequest(password string) rln.UnlockRequest {
	defaults := c.cfg.Flavour.Defaults()

	req := rln.UnlockRequest{
		Password:            password,
		BitcoindRPCUsername: defaults.BitcoindRPCUser,
		BitcoindRPCPassword: defaults.BitcoindRPCPassword,
		BitcoindRPCHost:     defaults.BitcoindRPCHost,
		BitcoindRPCPort:     int(defaults.BitcoindRPCPort),
		IndexerURL:          defaults.IndexerURL,
		ProxyEndpoint:       defaults.ProxyEndpoint,
		AnnounceAddresses:   []string{defaults.AnnounceAddress},
		AnnounceAlias:       defaults.AnnounceAlias,
	}

	store := c.cfg.Store
	if v, ok := store.GetString(localstore.KeyBitcoindRPCUser); ok {
		req.BitcoindRPCUsername = v
	}
	if v, ok := store.GetString(localstore.KeyBitcoindRPCPassword); ok {
		req.BitcoindRPCPassword = v
	}
	if v, ok := store.GetString(localstore.KeyBitcoindRPCHost); ok {
		req.BitcoindRPCHost = v
	}
	if v, ok := store.GetInt(localstore.KeyBitcoindRPCPort); ok {
		req.BitcoindRPCPort = int(v)
	}
	if v, ok := store.GetString(localstore.KeyIndexerURL); ok {
		req.IndexerURL = v
	}
	if v, ok := store.GetString(localstore.KeyProxyEndpoint); ok {
		req.ProxyEndpoint = v
	}
	if v, ok := store.GetString(localstore.KeyAnnounceAddress); ok {
		req.AnnounceAddresses = []string{v}
	}
	if v, ok := store.GetString(localstore.KeyAnnounceAlias); ok {
		req.AnnounceAlias = v
	}

	return req
}

// navigate publishes a navigation intent.
func (c *Coordinator) navigate(intent Intent, err error) {
	log.Debugf("Navigating to %v", intent)
	c.publish(NavigationEvent{Intent: intent, Err: err})
}

func (c *Coordinator) publish(event events.Event) {
	if c.cfg.Bus == nil {
		return
	}
	if err := c.cfg.Bus.Publish(event); err != nil {
		log.Warnf("Dropping wallet event %T: %v", event, err)
	}
}
