package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *clock.TestClock) {
	t.Helper()

	testClock := clock.NewTestClock(testTime)
	store, err := New(Config{
		DBPath: filepath.Join(t.TempDir(), "cache.sqlite"),
		Clock:  testClock,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store, testClock
}

func TestFetchMiss(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	payload, fresh := store.Fetch("POST/btcbalance")
	require.Nil(t, payload)
	require.False(t, fresh)
}

func TestPutFetchWithinTTL(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	store.Put("POST/btcbalance", []byte(`{"vanilla": {}}`))

	payload, fresh := store.Fetch("POST/btcbalance")
	require.Equal(t, []byte(`{"vanilla": {}}`), payload)
	require.True(t, fresh)
}

// TestExpiryIsLazy verifies that a row exactly TTL old reads as stale but
// still returns its payload.
func TestExpiryIsLazy(t *testing.T) {
	t.Parallel()

	store, testClock := newTestStore(t)

	store.Put("POST/listtransactions", []byte(`{"transactions": []}`))
	testClock.SetTime(testTime.Add(DefaultTTL))

	payload, fresh := store.Fetch("POST/listtransactions")
	require.NotNil(t, payload)
	require.False(t, fresh)
}

func TestInvalidateSingleKey(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	store.Put("a", []byte("1"))
	store.Put("b", []byte("2"))

	store.Invalidate("a")

	_, fresh := store.Fetch("a")
	require.False(t, fresh)

	_, fresh = store.Fetch("b")
	require.True(t, fresh)
}

func TestInvalidateAll(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	store.Put("a", []byte("1"))
	store.Put("b", []byte("2"))

	store.Invalidate()

	for _, key := range []string{"a", "b"} {
		payload, fresh := store.Fetch(key)
		require.NotNil(t, payload)
		require.False(t, fresh)
	}

	// Invalidating an already-invalid store is a no-op.
	store.Invalidate()
	_, fresh := store.Fetch("a")
	require.False(t, fresh)
}

// TestPutRevalidates asserts that overwriting an invalidated row makes it
// fresh again.
func TestPutRevalidates(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	store.Put("a", []byte("old"))
	store.Invalidate("a")
	store.Put("a", []byte("new"))

	payload, fresh := store.Fetch("a")
	require.Equal(t, []byte("new"), payload)
	require.True(t, fresh)
}

// TestErrorsNeverPropagate checks that I/O failures after close surface only
// through the error callback and read as misses.
func TestErrorsNeverPropagate(t *testing.T) {
	t.Parallel()

	var reported []error
	store, err := New(Config{
		DBPath: filepath.Join(t.TempDir(), "cache.sqlite"),
		Clock:  clock.NewTestClock(testTime),
		OnError: func(err error) {
			reported = append(reported, err)
		},
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store.Put("a", []byte("1"))
	payload, fresh := store.Fetch("a")
	require.Nil(t, payload)
	require.False(t, fresh)
	require.NotEmpty(t, reported)
}
