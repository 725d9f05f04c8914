package rln

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/rgb-tools/iris-wallet-core/cache"
	"github.com/stretchr/testify/require"
)

// staticStatus is a StatusSource pinned to one state.
type staticStatus WalletState

func (s staticStatus) WalletState() WalletState {
	return WalletState(s)
}

// newTestClient points a client at srv with the given lock state.
func newTestClient(t *testing.T, srv *httptest.Server,
	state WalletState) *Client {

	t.Helper()

	return NewClient(&ClientConfig{
		BaseURL: func() string {
			return srv.URL
		},
		Status: staticStatus(state),
	})
}

// newTestCache builds an on-disk cache with a controllable clock.
func newTestCache(t *testing.T) (*cache.Store, *clock.TestClock) {
	t.Helper()

	testClock := clock.NewTestClock(time.Unix(1_700_000_000, 0))
	store, err := cache.New(cache.Config{
		DBPath: filepath.Join(t.TempDir(), "cache.sqlite"),
		Clock:  testClock,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store, testClock
}

// TestErrorMapping checks that daemon error strings map to their kinds and
// that unrecognized strings are preserved.
func TestErrorMapping(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		body   string
		status int
		kind   ErrorKind
	}{
		{
			body:   `{"error": "Node is locked (hint: call unlock)"}`,
			status: http.StatusForbidden,
			kind:   KindNodeLocked,
		},
		{
			body:   `{"error": "The provided password is incorrect"}`,
			status: http.StatusUnauthorized,
			kind:   KindWrongPassword,
		},
		{
			body: `{"error": "Wallet has not been initialized ` +
				`(hint: call init)"}`,
			status: http.StatusForbidden,
			kind:   KindNotInitialized,
		},
		{
			body: `{"error": "No uncolored UTXOs are available ` +
				`(hint: call createutxos)"}`,
			status: http.StatusForbidden,
			kind:   KindNoAvailableUtxos,
		},
		{
			body:   `{"error": "Insufficient funds: 42 sat missing"}`,
			status: http.StatusBadRequest,
			kind:   KindInsufficientFunds,
		},
		{
			body:   `{"error": "flux capacitor overload"}`,
			status: http.StatusInternalServerError,
			kind:   KindUnknown,
		},
	}

	for _, tc := range testCases {
		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			},
		))

		c := newTestClient(t, srv, StateUnlocked)
		_, err := c.NodeInfo(context.Background())
		require.Error(t, err)
		require.Equal(t, tc.kind, Kind(err))

		var daemonErr *Error
		require.ErrorAs(t, err, &daemonErr)
		require.Equal(t, tc.status, daemonErr.Status)

		srv.Close()
	}
}

// TestGatingFailsFast checks that a call needing an unlocked wallet never
// reaches the network when the wallet is known to be locked, and the
// symmetric case for locked-only calls.
func TestGatingFailsFast(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Write([]byte(`{}`))
		},
	))
	defer srv.Close()

	locked := newTestClient(t, srv, StateLocked)
	_, err := locked.BTCBalance(context.Background())
	require.True(t, IsKind(err, KindNodeLocked))
	require.Zero(t, hits.Load())

	unlocked := newTestClient(t, srv, StateUnlocked)
	_, err = unlocked.Init(context.Background(), InitRequest{
		Password: "hunter22",
	})
	require.True(t, IsKind(err, KindNodeUnlocked))
	require.Zero(t, hits.Load())

	// NodeInfo doubles as the lock-state probe so it must go through
	// regardless of the tracked state.
	_, err = locked.NodeInfo(context.Background())
	require.Error(t, err)
	require.Equal(t, int32(1), hits.Load())
}

// TestUnknownStateSkipsGating checks that without a status source the
// daemon stays the arbiter.
func TestUnknownStateSkipsGating(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"vanilla": {}, "colored": {}}`))
		},
	))
	defer srv.Close()

	c := NewClient(&ClientConfig{
		BaseURL: func() string {
			return srv.URL
		},
	})

	_, err := c.BTCBalance(context.Background())
	require.NoError(t, err)
}

// TestCacheServesFreshReads checks the read path: first call hits the
// daemon and fills the cache, the second is served locally.
func TestCacheServesFreshReads(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Write([]byte(`{"vanilla": {"settled": 1500,
				"future": 0, "spendable": 1500},
				"colored": {"settled": 0, "future": 0,
				"spendable": 0}}`))
		},
	))
	defer srv.Close()

	store, testClock := newTestCache(t)
	c := NewClient(&ClientConfig{
		BaseURL: func() string {
			return srv.URL
		},
		Cache: store,
	})

	resp, err := c.BTCBalance(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1500, resp.Vanilla.Settled)
	require.Equal(t, int32(1), hits.Load())

	resp, err = c.BTCBalance(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1500, resp.Vanilla.Settled)
	require.Equal(t, int32(1), hits.Load())

	// Past the TTL the daemon is asked again.
	testClock.SetTime(testClock.Now().Add(cache.DefaultTTL))
	_, err = c.BTCBalance(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())
}

// TestMutationInvalidatesCache checks that a successful send drops cached
// reads.
func TestMutationInvalidatesCache(t *testing.T) {
	t.Parallel()

	var balanceHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(EndpointBTCBalance,
		func(w http.ResponseWriter, r *http.Request) {
			balanceHits.Add(1)
			w.Write([]byte(`{"vanilla": {}, "colored": {}}`))
		},
	)
	mux.HandleFunc(EndpointSendBTC,
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"txid": "deadbeef"}`))
		},
	)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store, _ := newTestCache(t)
	c := NewClient(&ClientConfig{
		BaseURL: func() string {
			return srv.URL
		},
		Cache: store,
	})

	ctx := context.Background()

	_, err := c.BTCBalance(ctx)
	require.NoError(t, err)
	_, err = c.BTCBalance(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(1), balanceHits.Load())

	sendResp, err := c.SendBTC(ctx, SendBTCRequest{
		Amount:  1000,
		Address: "bcrt1qtest",
		FeeRate: 5,
	})
	require.NoError(t, err)
	require.Equal(t, "deadbeef", sendResp.TxID)

	_, err = c.BTCBalance(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(2), balanceHits.Load())
}

// TestUtxoFallbackRetriesOnce checks that a colored operation failing for
// lack of uncolored UTXOs triggers exactly one createutxos and one retry.
func TestUtxoFallbackRetriesOnce(t *testing.T) {
	t.Parallel()

	var sendAttempts, createCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(EndpointSendAsset,
		func(w http.ResponseWriter, r *http.Request) {
			if sendAttempts.Add(1) == 1 {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error": "No uncolored ` +
					`UTXOs are available (hint: call ` +
					`createutxos)"}`))
				return
			}
			w.Write([]byte(`{"txid": "cafebabe"}`))
		},
	)
	mux.HandleFunc(EndpointCreateUTXOs,
		func(w http.ResponseWriter, r *http.Request) {
			createCalls.Add(1)
			w.Write([]byte(`{"status": true}`))
		},
	)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv, StateUnlocked)
	resp, err := c.SendAsset(context.Background(), SendAssetRequest{
		AssetID:     "rgb:asset",
		Amount:      10,
		RecipientID: "recipient",
		FeeRate:     5,
	})
	require.NoError(t, err)
	require.Equal(t, "cafebabe", resp.TxID)
	require.Equal(t, int32(2), sendAttempts.Load())
	require.Equal(t, int32(1), createCalls.Load())
}

// TestOpenChannelFallbackSizesUtxos checks that a channel open running out
// of uncolored UTXOs creates replacement UTXOs large enough to fund the
// channel rather than allocation-sized ones.
func TestOpenChannelFallbackSizesUtxos(t *testing.T) {
	t.Parallel()

	var openAttempts atomic.Int32
	var createdSize atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(EndpointOpenChannel,
		func(w http.ResponseWriter, r *http.Request) {
			if openAttempts.Add(1) == 1 {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error": "No uncolored ` +
					`UTXOs are available (hint: call ` +
					`createutxos)"}`))
				return
			}
			w.Write([]byte(
				`{"temporary_channel_id": "feedface"}`,
			))
		},
	)
	mux.HandleFunc(EndpointCreateUTXOs,
		func(w http.ResponseWriter, r *http.Request) {
			var req CreateUTXOsRequest
			require.NoError(
				t, json.NewDecoder(r.Body).Decode(&req),
			)
			createdSize.Store(int32(req.Size))
			w.Write([]byte(`{"status": true}`))
		},
	)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv, StateUnlocked)
	resp, err := c.OpenChannel(context.Background(), OpenChannelRequest{
		PeerPubkeyAndOptAddr: "pubkey@127.0.0.1:9735",
		CapacitySat:          100_000,
	})
	require.NoError(t, err)
	require.Equal(t, "feedface", resp.TemporaryChannelID)
	require.Equal(t, int32(2), openAttempts.Load())
	require.Equal(t, int32(ChannelUtxoSize), createdSize.Load())
}

// TestUtxoFallbackSecondFailurePropagates checks that the retry happens at
// most once.
func TestUtxoFallbackSecondFailurePropagates(t *testing.T) {
	t.Parallel()

	var sendAttempts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(EndpointSendAsset,
		func(w http.ResponseWriter, r *http.Request) {
			sendAttempts.Add(1)
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error": "No uncolored UTXOs are ` +
				`available (hint: call createutxos)"}`))
		},
	)
	mux.HandleFunc(EndpointCreateUTXOs,
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status": true}`))
		},
	)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv, StateUnlocked)
	_, err := c.SendAsset(context.Background(), SendAssetRequest{
		AssetID:     "rgb:asset",
		Amount:      10,
		RecipientID: "recipient",
		FeeRate:     5,
	})
	require.True(t, IsKind(err, KindNoAvailableUtxos))
	require.Equal(t, int32(2), sendAttempts.Load())
}

// TestDecodeMissingRequiredField checks that a 2xx body lacking a required
// field is a decode failure.
func TestDecodeMissingRequiredField(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"num_channels": 3}`))
		},
	))
	defer srv.Close()

	c := newTestClient(t, srv, StateUnlocked)
	_, err := c.NodeInfo(context.Background())
	require.True(t, IsKind(err, KindDecode))
}

// TestRequestTimeout checks that an overdue daemon response surfaces as a
// timeout.
func TestRequestTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
			w.Write([]byte(`{}`))
		},
	))
	defer srv.Close()

	c := NewClient(&ClientConfig{
		BaseURL: func() string {
			return srv.URL
		},
		RequestTimeout: 50 * time.Millisecond,
	})

	_, err := c.NodeInfo(context.Background())
	require.True(t, IsKind(err, KindTimeout))
}

// TestBaseURLReadPerCall checks that a settings change to the daemon URL is
// picked up without rebuilding the client.
func TestBaseURLReadPerCall(t *testing.T) {
	t.Parallel()

	newSrv := func(pubkey string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"pubkey": "` + pubkey + `"}`))
			},
		))
	}

	srvA := newSrv("aaa")
	defer srvA.Close()
	srvB := newSrv("bbb")
	defer srvB.Close()

	url := srvA.URL
	c := NewClient(&ClientConfig{
		BaseURL: func() string {
			return url
		},
	})

	resp, err := c.NodeInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "aaa", resp.Pubkey)

	url = srvB.URL
	resp, err = c.NodeInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "bbb", resp.Pubkey)
}
