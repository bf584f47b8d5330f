package events

import "sync"

// Bus fans a published event out to every in-process subscriber (the admin
// websocket hub) and to zero or more remote publishers (a RedisPublisher,
// for dashboards outside this process). It implements Publisher itself so
// the pool can hold a single Bus as its events.Publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan *Event
	nextID int
	remote []Publisher
}

// NewBus constructs an empty bus. remote publishers are called synchronously
// from Publish, so a slow one delays Publish by as long as its own Publish
// call takes (a RedisPublisher waits at most its configured timeout).
func NewBus(remote ...Publisher) *Bus {
	return &Bus{
		subs:   make(map[int]chan *Event),
		remote: remote,
	}
}

// Subscribe registers a buffered channel that receives every future event.
// The returned cancel func must be called to unregister and close it.
func (b *Bus) Subscribe(buffer int) (<-chan *Event, func()) {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan *Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers event to every subscriber channel without blocking
// (a full channel drops the event) and then calls every remote
// publisher's Publish in turn, on the caller's goroutine.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
	for _, r := range b.remote {
		r.Publish(event)
	}
}

// Close closes every subscriber channel and every remote publisher.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	for _, r := range b.remote {
		_ = r.Close()
	}
	return nil
}

var _ Publisher = (*Bus)(nil)
