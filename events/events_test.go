package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testEvent struct {
	topic Topic
	seq   int
}

func (e *testEvent) Topic() Topic {
	return e.topic
}

func recv(t *testing.T, sub *Subscription) *testEvent {
	t.Helper()

	select {
	case raw := <-sub.Events():
		return raw.(*testEvent)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return nil
	}
}

func TestTopicFanOut(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	require.NoError(t, bus.Start())
	defer func() {
		require.NoError(t, bus.Stop())
	}()

	supervisorSub, err := bus.Subscribe(TopicSupervisor)
	require.NoError(t, err)

	allSub, err := bus.Subscribe()
	require.NoError(t, err)

	require.NoError(t, bus.Publish(
		&testEvent{topic: TopicSupervisor, seq: 1},
	))
	require.NoError(t, bus.Publish(
		&testEvent{topic: TopicWallet, seq: 2},
	))

	// The topic-filtered subscriber sees only supervisor events.
	require.Equal(t, 1, recv(t, supervisorSub).seq)

	// The unfiltered subscriber sees both, in order.
	require.Equal(t, 1, recv(t, allSub).seq)
	require.Equal(t, 2, recv(t, allSub).seq)

	// Nothing else is pending for the filtered subscriber.
	select {
	case raw := <-supervisorSub.Events():
		t.Fatalf("unexpected event %v", raw)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	require.NoError(t, bus.Start())
	defer func() {
		require.NoError(t, bus.Stop())
	}()

	sub, err := bus.Subscribe(TopicWallet)
	require.NoError(t, err)

	sub.Cancel()

	select {
	case <-sub.Quit():
	case <-time.After(time.Second):
		t.Fatal("subscription not torn down")
	}

	// Publishing after cancel must not block.
	require.NoError(t, bus.Publish(&testEvent{topic: TopicWallet}))
}

func TestStopClosesSubscribers(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	require.NoError(t, bus.Start())

	sub, err := bus.Subscribe()
	require.NoError(t, err)

	require.NoError(t, bus.Stop())

	select {
	case <-sub.Quit():
	case <-time.After(time.Second):
		t.Fatal("subscriber not notified of shutdown")
	}

	require.ErrorIs(
		t, bus.Publish(&testEvent{topic: TopicWallet}),
		ErrBusShuttingDown,
	)
}
