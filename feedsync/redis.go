package feedsync

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const redisPrefix = "sonicfeed:"

func redisChannel(channel string) string {
	return redisPrefix + channel
}

// RedisBridge relays hub channels between processes over Redis Pub/Sub.
// Messages are tagged with the instance origin so a process ignores its own
// echoes, and relayed messages are never sent back out.
type RedisBridge struct {
	hub      *Hub
	client   *redis.Client
	channels []string
	origin   string

	ready     chan struct{}
	readyOnce sync.Once
}

func NewRedisBridge(hub *Hub, client *redis.Client, channels ...string) *RedisBridge {
	return &RedisBridge{
		hub:      hub,
		client:   client,
		channels: channels,
		origin:   uuid.New().String(),
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the first Redis subscription is confirmed.
func (b *RedisBridge) Ready() <-chan struct{} {
	return b.ready
}

// Run relays messages until ctx is done. Lost subscriptions are retried with
// exponential backoff.
func (b *RedisBridge) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, channel := range b.channels {
		key, messages := b.hub.Subscribe(channel)
		wg.Add(1)
		go func(channel string) {
			defer wg.Done()
			defer b.hub.Unsubscribe(channel, key)
			b.forward(ctx, channel, messages)
		}(channel)
	}
	defer wg.Wait()

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 100 * time.Millisecond
	retry.MaxInterval = 30 * time.Second
	retry.Multiplier = 1.5
	retry.MaxElapsedTime = 0 // Never stop retrying

	for {
		err := b.receive(ctx, retry.Reset)
		if ctx.Err() != nil {
			return
		}

		wait := retry.NextBackOff()
		redisReconnects.Inc()
		log.WithFields(log.Fields{
			"error": err,
			"wait":  wait,
		}).Warn("Redis subscription lost, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// forward publishes local messages to Redis.
func (b *RedisBridge) forward(ctx context.Context, channel string, messages <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if msg.Origin != "" {
				continue
			}
			msg.Origin = b.origin
			if err := publish(ctx, b.client, channel, msg); err != nil {
				log.WithFields(log.Fields{
					"channel": channel,
					"error":   err,
				}).Warn("Could not relay message to Redis")
			}
		}
	}
}

// receive subscribes to Redis and republishes remote messages locally until
// the subscription fails or ctx is done.
func (b *RedisBridge) receive(ctx context.Context, onSubscribed func()) error {
	names := make([]string, len(b.channels))
	for i, channel := range b.channels {
		names[i] = redisChannel(channel)
	}

	pubsub := b.client.Subscribe(ctx, names...)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	onSubscribed()
	b.readyOnce.Do(func() { close(b.ready) })
	log.WithFields(log.Fields{
		"channels": names,
		"origin":   b.origin,
	}).Info("Subscribed to Redis")

	incoming := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-incoming:
			if !ok {
				return redis.ErrClosed
			}
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				log.WithFields(log.Fields{
					"channel": m.Channel,
					"error":   err,
				}).Warn("Ignoring malformed sync message")
				continue
			}
			if msg.Origin == b.origin {
				continue
			}
			if msg.Origin == "" {
				msg.Origin = "unknown"
			}
			b.hub.Publish(strings.TrimPrefix(m.Channel, redisPrefix), msg)
		}
	}
}

// PublishRefresh asks every process listening on channel to reload its feed.
func PublishRefresh(ctx context.Context, client *redis.Client, channel string) error {
	return publish(ctx, client, channel, Message{
		Type:   TypeRefresh,
		Origin: uuid.New().String(),
	})
}

func publish(ctx context.Context, client *redis.Client, channel string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return client.Publish(ctx, redisChannel(channel), data).Err()
}
