package events

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mrivas/taskpool/internal/logger"
)

const channelPrefix = "taskpool:events:"

// RedisPublisher broadcasts events on a Redis Pub/Sub channel for
// dashboards running outside this process. Grounded on the teacher's
// internal/events/redis_pubsub.go, trimmed to the publish side only —
// SPEC_FULL.md §3 re-homes Redis away from a persistent queue toward
// fire-and-forget eventing, so there is no in-pool subscriber.
type RedisPublisher struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisPublisher wraps client. timeout bounds each Publish call;
// a non-positive value defaults to 2 seconds.
func NewRedisPublisher(client *redis.Client, timeout time.Duration) *RedisPublisher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisPublisher{client: client, timeout: timeout}
}

// Publish is fire-and-forget: a serialization or transport failure is
// logged and otherwise swallowed, never surfaced to the caller.
func (r *RedisPublisher) Publish(event *Event) {
	data, err := event.ToJSON()
	if err != nil {
		logger.Error().Err(err).Str("event_type", string(event.Type)).Msg("failed to serialize event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	channel := channelPrefix + string(event.Type)
	if err := r.client.Publish(ctx, channel, data).Err(); err != nil {
		logger.Warn().Err(err).Str("channel", channel).Msg("failed to publish event to redis")
		return
	}

	logger.Debug().Str("event_type", string(event.Type)).Str("channel", channel).Msg("event published")
}

// Close closes the underlying Redis client.
func (r *RedisPublisher) Close() error {
	return r.client.Close()
}

var _ Publisher = (*RedisPublisher)(nil)
