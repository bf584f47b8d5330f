package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrivas/taskpool/internal/events"
)

func newTestClient(hub *Hub) *Client {
	return &Client{ID: "test-client", hub: hub, send: make(chan []byte, 4), subscriptions: make(map[events.Type]bool)}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	bus := events.NewBus()
	hub := NewHub(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Run(ctx)
	defer hub.Stop()

	client := newTestClient(hub)
	hub.Register(client)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	bus.Publish(events.New(events.TaskCompleted, events.TaskEventData("t1", nil)))

	select {
	case msg := <-client.send:
		assert.Contains(t, string(msg), "task.completed")
	case <-time.After(time.Second):
		t.Fatal("client never received broadcast event")
	}
}

func TestHub_UnregisterRemovesClient(t *testing.T) {
	bus := events.NewBus()
	hub := NewHub(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Run(ctx)
	defer hub.Stop()

	client := newTestClient(hub)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestClient_IsSubscribedDefaultsToAll(t *testing.T) {
	c := newTestClient(nil)
	assert.True(t, c.IsSubscribed(events.TaskFailed))

	c.Subscribe(events.TaskCompleted)
	assert.True(t, c.IsSubscribed(events.TaskCompleted))
	assert.False(t, c.IsSubscribed(events.TaskFailed))
}
