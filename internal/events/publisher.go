package events

// Publisher broadcasts events to subscribers. Publish returns no error:
// implementations drop an event they cannot deliver rather than fail the
// caller, and bound how long they wait (the Bus drops on a full subscriber
// channel; RedisPublisher gives up after its timeout).
type Publisher interface {
	Publish(event *Event)
	Close() error
}

// NopPublisher discards every event. Used as the pool's default publisher
// so events are strictly optional.
type NopPublisher struct{}

func (NopPublisher) Publish(*Event) {}
func (NopPublisher) Close() error   { return nil }

var _ Publisher = NopPublisher{}
