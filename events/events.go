package events

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/lightningnetwork/lnd/queue"
)

// ErrBusShuttingDown is returned when an operation races the bus shutdown.
var ErrBusShuttingDown = errors.New("event bus shutting down")

// Topic groups related events so a subscriber only receives what it asked
// for.
type Topic string

const (
	// TopicSupervisor carries daemon lifecycle events.
	TopicSupervisor Topic = "supervisor"

	// TopicWallet carries unlock coordinator navigation intents.
	TopicWallet Topic = "wallet"

	// TopicBackup carries backup completion events.
	TopicBackup Topic = "backup"

	// TopicCache carries non-fatal cache I/O notifications.
	TopicCache Topic = "cache"
)

// Event is any value published on the bus.
type Event interface {
	// Topic names the stream this event belongs to.
	Topic() Topic
}

// Subscription delivers events for the subscribed topics until cancelled.
type Subscription struct {
	cancel func()

	updates *queue.ConcurrentQueue
	quit    chan struct{}
}

// Events returns the read-only channel events are delivered on.
func (s *Subscription) Events() <-chan interface{} {
	return s.updates.ChanOut()
}

// Quit is closed when the bus stops delivering to this subscription.
func (s *Subscription) Quit() <-chan struct{} {
	return s.quit
}

// Cancel tears down the subscription.
func (s *Subscription) Cancel() {
	s.cancel()
}

// matches reports whether the subscription wants events on the given topic.
// An empty topic set subscribes to everything.
func (s *subEntry) matches(topic Topic) bool {
	if len(s.topics) == 0 {
		return true
	}
	_, ok := s.topics[topic]
	return ok
}

type subEntry struct {
	sub    *Subscription
	topics map[Topic]struct{}
}

// subUpdate registers or cancels a subscription on the bus goroutine.
type subUpdate struct {
	cancel bool
	subID  uint64
	entry  *subEntry
}

// Bus fans events out to topic-keyed subscribers. All bookkeeping happens on
// a single goroutine so subscriptions never race deliveries.
type Bus struct {
	subCounter uint64 // To be used atomically.

	started uint32 // To be used atomically.
	stopped uint32 // To be used atomically.

	subs       map[uint64]*subEntry
	subUpdates chan *subUpdate

	publishes chan Event

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewBus returns an unstarted Bus.
func NewBus() *Bus {
	return &Bus{
		subs:       make(map[uint64]*subEntry),
		subUpdates: make(chan *subUpdate),
		publishes:  make(chan Event),
		quit:       make(chan struct{}),
	}
}

// Start launches the dispatch goroutine.
func (b *Bus) Start() error {
	if !atomic.CompareAndSwapUint32(&b.started, 0, 1) {
		return nil
	}

	b.wg.Add(1)
	go b.dispatcher()

	return nil
}

// Stop halts dispatch and tears down every subscription.
func (b *Bus) Stop() error {
	if !atomic.CompareAndSwapUint32(&b.stopped, 0, 1) {
		return nil
	}

	close(b.quit)
	b.wg.Wait()

	return nil
}

// Subscribe registers for events on the given topics. No topics means all
// topics.
func (b *Bus) Subscribe(topics ...Topic) (*Subscription, error) {
	subID := atomic.AddUint64(&b.subCounter, 1)

	sub := &Subscription{
		updates: queue.NewConcurrentQueue(20),
		quit:    make(chan struct{}),
		cancel: func() {
			select {
			case b.subUpdates <- &subUpdate{
				cancel: true,
				subID:  subID,
			}:
			case <-b.quit:
			}
		},
	}

	topicSet := make(map[Topic]struct{}, len(topics))
	for _, topic := range topics {
		topicSet[topic] = struct{}{}
	}

	select {
	case b.subUpdates <- &subUpdate{
		subID: subID,
		entry: &subEntry{sub: sub, topics: topicSet},
	}:
	case <-b.quit:
		return nil, ErrBusShuttingDown
	}

	return sub, nil
}

// Publish delivers the event to every matching subscriber.
func (b *Bus) Publish(event Event) error {
	select {
	case b.publishes <- event:
		return nil
	case <-b.quit:
		return ErrBusShuttingDown
	}
}

// dispatcher is the bus main loop.
//
// NOTE: MUST be run as a goroutine.
func (b *Bus) dispatcher() {
	defer b.wg.Done()

	for {
		select {
		case update := <-b.subUpdates:
			if update.cancel {
				entry, ok := b.subs[update.subID]
				if ok {
					entry.sub.updates.Stop()
					close(entry.sub.quit)
					delete(b.subs, update.subID)
				}

				continue
			}

			update.entry.sub.updates.Start()
			b.subs[update.subID] = update.entry

		case event := <-b.publishes:
			for _, entry := range b.subs {
				if !entry.matches(event.Topic()) {
					continue
				}

				select {
				case entry.sub.updates.ChanIn() <- event:
				case <-entry.sub.quit:
				case <-b.quit:
					return
				}
			}

		case <-b.quit:
			for _, entry := range b.subs {
				entry.sub.updates.Stop()
				close(entry.sub.quit)
			}
			return
		}
	}
}
