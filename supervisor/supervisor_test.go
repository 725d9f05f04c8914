package supervisor

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/ticker"
	"github.com/rgb-tools/iris-wallet-core/events"
	"github.com/stretchr/testify/require"
)

// testHarness bundles a supervisor with forced tickers and a subscribed
// event stream.
type testHarness struct {
	t *testing.T

	sup         *Supervisor
	bus         *events.Bus
	sub         *events.Subscription
	probeTicker *ticker.Force
	closeTicker *ticker.Force
}

func newTestHarness(t *testing.T, cfg Config) *testHarness {
	t.Helper()

	bus := events.NewBus()
	require.NoError(t, bus.Start())
	t.Cleanup(func() {
		bus.Stop()
	})

	sub, err := bus.Subscribe(events.TopicSupervisor)
	require.NoError(t, err)

	probeTicker := ticker.NewForce(time.Hour)
	closeTicker := ticker.NewForce(time.Hour)

	cfg.Bus = bus
	cfg.ProbeTicker = probeTicker
	cfg.CloseTicker = closeTicker

	sup := New(cfg)
	t.Cleanup(sup.Shutdown)

	return &testHarness{
		t:           t,
		sup:         sup,
		bus:         bus,
		sub:         sub,
		probeTicker: probeTicker,
		closeTicker: closeTicker,
	}
}

// nextEvent waits for the next supervisor event.
func (h *testHarness) nextEvent() interface{} {
	h.t.Helper()

	select {
	case event := <-h.sub.Events():
		return event
	case <-time.After(5 * time.Second):
		h.t.Fatal("timeout waiting for supervisor event")
		return nil
	}
}

// tickProbe fires one health probe tick.
func (h *testHarness) tickProbe() {
	h.t.Helper()

	select {
	case h.probeTicker.Force <- time.Now():
	case <-time.After(5 * time.Second):
		h.t.Fatal("probe ticker not consumed")
	}
}

// tickClose fires one close poll tick.
func (h *testHarness) tickClose() {
	h.t.Helper()

	select {
	case h.closeTicker.Force <- time.Now():
	case <-time.After(5 * time.Second):
		h.t.Fatal("close ticker not consumed")
	}
}

// TestStartBecomesRunningWhenProbeAnswers checks the Starting to Running
// transition: connection errors burn attempts, the first answered probe
// emits started.
func TestStartBecomesRunningWhenProbeAnswers(t *testing.T) {
	var calls atomic.Int32
	h := newTestHarness(t, Config{
		ExecutablePath: "/bin/sleep",
		Args:           []string{"60"},
		Probe: func(ctx context.Context) bool {
			return calls.Add(1) >= 3
		},
	})

	require.NoError(t, h.sup.Start())
	require.Equal(t, StateStarting, h.sup.State())

	h.tickProbe()
	h.tickProbe()
	h.tickProbe()

	require.IsType(t, StartedEvent{}, h.nextEvent())
	require.IsType(t, LoaderEvent{}, h.nextEvent())
	require.Equal(t, StateRunning, h.sup.State())

	// Graceful stop: SIGTERM ends sleep, the close loop sees the exit
	// and the synchronous wait returns clean.
	require.NoError(t, h.sup.Stop())
	require.NoError(t, h.sup.WaitForClose())
	require.IsType(t, TerminatedEvent{}, h.nextEvent())
	require.IsType(t, FinishedOnCloseEvent{}, h.nextEvent())
	require.Equal(t, StateStopped, h.sup.State())
}

// TestStopCloseBudgetLapse checks that a child ignoring the termination
// signal produces exactly one close error event, leaves the supervisor at
// Stopping and fails the synchronous wait.
func TestStopCloseBudgetLapse(t *testing.T) {
	h := newTestHarness(t, Config{
		ExecutablePath: "/bin/sh",
		Args: []string{
			"-c", `trap "" TERM; sleep 60`,
		},
		MaxCloseAttempts: 3,
		Probe: func(ctx context.Context) bool {
			return true
		},
	})

	require.NoError(t, h.sup.Start())
	t.Cleanup(func() {
		h.sup.cmd.Process.Kill()
	})

	h.tickProbe()
	require.IsType(t, StartedEvent{}, h.nextEvent())
	require.IsType(t, LoaderEvent{}, h.nextEvent())

	require.NoError(t, h.sup.Stop())
	for i := 0; i < 3; i++ {
		h.tickClose()
	}

	require.IsType(t, FinishedOnCloseErrorEvent{}, h.nextEvent())
	require.Equal(t, StateStopping, h.sup.State())
	require.ErrorIs(t, h.sup.WaitForClose(), ErrCloseTimeout)

	// The budget verdict is final, no further close events follow.
	select {
	case event := <-h.sub.Events():
		t.Fatalf("unexpected event after close verdict: %T", event)
	case <-time.After(100 * time.Millisecond):
	}
}

// TestWaitForCloseWithoutStop checks that the wait is a no-op when no stop
// was requested.
func TestWaitForCloseWithoutStop(t *testing.T) {
	h := newTestHarness(t, Config{
		ExecutablePath: "/bin/sleep",
	})

	require.NoError(t, h.sup.WaitForClose())
}

// TestStartFailsAfterAttemptBudget checks that a socket that never answers
// fails the start with a single error event.
func TestStartFailsAfterAttemptBudget(t *testing.T) {
	h := newTestHarness(t, Config{
		ExecutablePath:   "/bin/sleep",
		Args:             []string{"60"},
		MaxStartAttempts: 3,
		Probe: func(ctx context.Context) bool {
			return false
		},
	})

	require.NoError(t, h.sup.Start())
	t.Cleanup(func() {
		h.sup.cmd.Process.Kill()
	})

	// Three failing probes burn the budget, the fourth tick gives up.
	for i := 0; i < 4; i++ {
		h.tickProbe()
	}

	event := h.nextEvent()
	require.IsType(t, ErrorEvent{}, event)
	require.Equal(t, 500, event.(ErrorEvent).Code)
	require.Equal(t, "Unable to start server", event.(ErrorEvent).Message)
	require.IsType(t, LoaderEvent{}, h.nextEvent())
	require.Equal(t, StateFailed, h.sup.State())
}

// TestStartWhileRunningEmitsAlreadyRunning checks the re-entrancy guard.
func TestStartWhileRunningEmitsAlreadyRunning(t *testing.T) {
	h := newTestHarness(t, Config{
		ExecutablePath: "/bin/sleep",
		Args:           []string{"60"},
		Probe: func(ctx context.Context) bool {
			return true
		},
	})

	require.NoError(t, h.sup.Start())
	t.Cleanup(func() {
		h.sup.cmd.Process.Kill()
	})

	require.ErrorIs(t, h.sup.Start(), ErrAlreadyRunning)
	require.IsType(t, AlreadyRunningEvent{}, h.nextEvent())
}

// TestUnexpectedExitFails checks that a child dying without a stop request
// moves the supervisor to Failed.
func TestUnexpectedExitFails(t *testing.T) {
	h := newTestHarness(t, Config{
		ExecutablePath: "/bin/true",
		Probe: func(ctx context.Context) bool {
			return false
		},
	})

	require.NoError(t, h.sup.Start())

	event := h.nextEvent()
	require.IsType(t, ErrorEvent{}, event)
	require.Equal(t, StateFailed, h.sup.State())
}

// TestStopNotRunning checks Stop without a running child.
func TestStopNotRunning(t *testing.T) {
	h := newTestHarness(t, Config{
		ExecutablePath: "/bin/sleep",
	})

	require.ErrorIs(t, h.sup.Stop(), ErrNotRunning)
}

// TestFindAvailablePort checks that a busy port is skipped.
func TestFindAvailablePort(t *testing.T) {
	t.Parallel()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	busy := uint16(l.Addr().(*net.TCPAddr).Port)

	port, err := FindAvailablePort(busy, 50)
	require.NoError(t, err)
	require.NotEqual(t, busy, port)
	require.Greater(t, port, busy)
}
