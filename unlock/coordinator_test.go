package unlock

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rgb-tools/iris-wallet-core/events"
	"github.com/rgb-tools/iris-wallet-core/flavour"
	"github.com/rgb-tools/iris-wallet-core/localstore"
	"github.com/rgb-tools/iris-wallet-core/rln"
	"github.com/rgb-tools/iris-wallet-core/secrets"
	"github.com/rgb-tools/iris-wallet-core/supervisor"
	"github.com/stretchr/testify/require"
)

// memSecrets is an in-memory secrets.Store.
type memSecrets struct {
	values map[string]string
}

func newMemSecrets() *memSecrets {
	return &memSecrets{values: make(map[string]string)}
}

func (m *memSecrets) SetSecret(key, value string,
	network flavour.Network) error {

	m.values[key+"_"+network.String()] = value
	return nil
}

func (m *memSecrets) GetSecret(key string,
	network flavour.Network) (string, error) {

	value, ok := m.values[key+"_"+network.String()]
	if !ok {
		return "", secrets.ErrNotFound
	}
	return value, nil
}

func (m *memSecrets) DeleteSecret(key string,
	network flavour.Network) error {

	delete(m.values, key+"_"+network.String())
	return nil
}

// fakeStarter records restart attempts.
type fakeStarter struct {
	calls atomic.Int32
}

func (f *fakeStarter) Start() error {
	f.calls.Add(1)
	return nil
}

type testHarness struct {
	t *testing.T

	coord   *Coordinator
	store   *localstore.Store
	secrets *memSecrets
	bus     *events.Bus
	sub     *events.Subscription
	starter *fakeStarter
}

func newTestHarness(t *testing.T, daemon http.Handler) *testHarness {
	t.Helper()

	srv := httptest.NewServer(daemon)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	store, err := localstore.New(
		filepath.Join(dir, "config.ini"), dir,
	)
	require.NoError(t, err)

	bus := events.NewBus()
	require.NoError(t, bus.Start())
	t.Cleanup(func() {
		bus.Stop()
	})

	sub, err := bus.Subscribe(events.TopicWallet)
	require.NoError(t, err)

	sec := newMemSecrets()
	starter := &fakeStarter{}

	client := rln.NewClient(&rln.ClientConfig{
		BaseURL: func() string {
			return srv.URL
		},
	})

	coord := New(Config{
		Client:     client,
		Store:      store,
		Secrets:    sec,
		Flavour:    flavour.New(flavour.NetworkRegtest),
		Bus:        bus,
		Supervisor: starter,
	})

	return &testHarness{
		t:       t,
		coord:   coord,
		store:   store,
		secrets: sec,
		bus:     bus,
		sub:     sub,
		starter: starter,
	}
}

// nextWalletEvent waits for the next wallet-topic event.
func (h *testHarness) nextWalletEvent() interface{} {
	h.t.Helper()

	select {
	case event := <-h.sub.Events():
		return event
	case <-time.After(5 * time.Second):
		h.t.Fatal("timeout waiting for wallet event")
		return nil
	}
}

// expectIntent waits for a navigation event with the given intent.
func (h *testHarness) expectIntent(want Intent) NavigationEvent {
	h.t.Helper()

	event := h.nextWalletEvent()
	nav, ok := event.(NavigationEvent)
	require.True(h.t, ok, "expected NavigationEvent, got %T", event)
	require.Equal(h.t, want, nav.Intent)
	return nav
}

// startAndSignal runs the coordinator and feeds it one started event.
func (h *testHarness) startAndSignal() {
	h.t.Helper()

	require.NoError(h.t, h.coord.Start())
	h.t.Cleanup(h.coord.Stop)
	require.NoError(h.t, h.bus.Publish(supervisor.StartedEvent{}))
}

// TestFreshInstallShowsWelcome checks the first decision-table row: no
// wallet yet means the welcome page, regardless of keyring state.
func TestFreshInstallShowsWelcome(t *testing.T) {
	h := newTestHarness(t, http.NotFoundHandler())

	h.startAndSignal()
	h.expectIntent(IntentWelcome)
	require.Equal(t, rln.StateLocked, h.coord.WalletState())
}

// TestKeyringDisabledPrompts checks that a created wallet with a disabled
// keyring always prompts for the password.
func TestKeyringDisabledPrompts(t *testing.T) {
	h := newTestHarness(t, http.NotFoundHandler())
	require.NoError(t, h.store.Set(localstore.KeyWalletCreated, true))
	require.NoError(t, h.store.Set(localstore.KeyKeyringDisabled, true))

	h.startAndSignal()
	h.expectIntent(IntentEnterPassword)
}

// TestAutoUnlockShowsMain checks the happy path: stored password, daemon
// accepts the unlock.
func TestAutoUnlockShowsMain(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(rln.EndpointUnlock,
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status": true}`))
		},
	)

	h := newTestHarness(t, mux)
	require.NoError(t, h.store.Set(localstore.KeyWalletCreated, true))
	require.NoError(t, h.secrets.SetSecret(
		secrets.KeyWalletPassword, "hunter22",
		flavour.NetworkRegtest,
	))

	h.startAndSignal()
	h.expectIntent(IntentShowMain)
	require.Equal(t, rln.StateUnlocked, h.coord.WalletState())
}

// TestWrongPasswordReprompts checks that a rejected password redirects to
// the password prompt with the error attached.
func TestWrongPasswordReprompts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(rln.EndpointUnlock,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "The provided password ` +
				`is incorrect"}`))
		},
	)

	h := newTestHarness(t, mux)
	require.NoError(t, h.store.Set(localstore.KeyWalletCreated, true))
	require.NoError(t, h.secrets.SetSecret(
		secrets.KeyWalletPassword, "wrong",
		flavour.NetworkRegtest,
	))

	h.startAndSignal()
	nav := h.expectIntent(IntentEnterPassword)
	require.True(t, rln.IsKind(nav.Err, rln.KindWrongPassword))
}

// TestUninitializedWalletRedirectsToSetPassword checks the NotInitialized
// routing.
func TestUninitializedWalletRedirectsToSetPassword(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(rln.EndpointUnlock,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error": "Wallet has not been ` +
				`initialized (hint: call init)"}`))
		},
	)

	h := newTestHarness(t, mux)
	require.NoError(t, h.store.Set(localstore.KeyWalletCreated, true))
	require.NoError(t, h.secrets.SetSecret(
		secrets.KeyWalletPassword, "hunter22",
		flavour.NetworkRegtest,
	))

	h.startAndSignal()
	h.expectIntent(IntentSetPassword)
}

// TestAlreadyUnlockedRelocksAndRetries checks that an unlocked daemon is
// locked and the unlock retried exactly once.
func TestAlreadyUnlockedRelocksAndRetries(t *testing.T) {
	var unlockCalls, lockCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc(rln.EndpointUnlock,
		func(w http.ResponseWriter, r *http.Request) {
			if unlockCalls.Add(1) == 1 {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error": "Node is ` +
					`unlocked (hint: call lock)"}`))
				return
			}
			w.Write([]byte(`{"status": true}`))
		},
	)
	mux.HandleFunc(rln.EndpointLock,
		func(w http.ResponseWriter, r *http.Request) {
			lockCalls.Add(1)
			w.Write([]byte(`{"status": true}`))
		},
	)

	h := newTestHarness(t, mux)

	intent, err := h.coord.Unlock(context.Background(), "hunter22")
	require.NoError(t, err)
	require.Equal(t, IntentShowMain, intent)
	require.Equal(t, int32(2), unlockCalls.Load())
	require.Equal(t, int32(1), lockCalls.Load())
}

// TestCrashPolicySingleRestart checks that the first node failure triggers
// one restart and the second surfaces a crash event.
func TestCrashPolicySingleRestart(t *testing.T) {
	h := newTestHarness(t, http.NotFoundHandler())

	require.NoError(t, h.coord.Start())
	t.Cleanup(h.coord.Stop)

	require.NoError(t, h.bus.Publish(supervisor.ErrorEvent{
		Code:    500,
		Message: "Unable to start server",
	}))

	require.Eventually(t, func() bool {
		return h.starter.calls.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, h.bus.Publish(supervisor.ErrorEvent{
		Code:    500,
		Message: "Unable to start server",
	}))

	event := h.nextWalletEvent()
	require.IsType(t, CrashEvent{}, event)
	require.Equal(t, int32(1), h.starter.calls.Load())
}

// TestCreateWalletStoresCredentials checks the init flow end to end:
// mnemonic returned, secrets stored, flags persisted, wallet unlocked.
func TestCreateWalletStoresCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(rln.EndpointInit,
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"mnemonic": "abandon ability able"}`))
		},
	)
	mux.HandleFunc(rln.EndpointUnlock,
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status": true}`))
		},
	)

	h := newTestHarness(t, mux)

	mnemonic, err := h.coord.CreateWallet(
		context.Background(), "hunter22",
	)
	require.NoError(t, err)
	require.Equal(t, "abandon ability able", mnemonic)

	stored, err := h.secrets.GetSecret(
		secrets.KeyMnemonic, flavour.NetworkRegtest,
	)
	require.NoError(t, err)
	require.Equal(t, mnemonic, stored)

	created, ok := h.store.GetBool(localstore.KeyWalletCreated)
	require.True(t, ok)
	require.True(t, created)
	require.Equal(t, rln.StateUnlocked, h.coord.WalletState())

	h.expectIntent(IntentShowMain)
}
