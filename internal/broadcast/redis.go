package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisChannelPrefix = "chat:"

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type redisSubscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// RedisBroadcaster publica eventos en Redis y permite suscribirse por canal de chat.
type RedisBroadcaster struct {
	publisher  redisPublisher
	subscriber redisSubscriber
	logger     *zap.Logger
}

func NewRedisBroadcaster(client *redis.Client, logger *zap.Logger) *RedisBroadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBroadcaster{publisher: client, subscriber: client, logger: logger}
}

func (b *RedisBroadcaster) Provider() string { return "redis" }

func (b *RedisBroadcaster) Trigger(ctx context.Context, channel, event string, payload any) error {
	if b == nil || b.publisher == nil {
		return errors.New("redis broadcaster not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	raw, err := json.Marshal(Event{Channel: channel, Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.publisher.Publish(ctx, redisChannelKey(channel), raw).Err()
}

// Subscribe entrega los eventos del canal hasta que ctx se cancela.
// El canal devuelto se cierra al terminar.
func (b *RedisBroadcaster) Subscribe(ctx context.Context, channel string) (<-chan Event, error) {
	if b == nil || b.subscriber == nil {
		return nil, errors.New("redis broadcaster not configured")
	}
	sub := b.subscriber.Subscribe(ctx, redisChannelKey(channel))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.logger.Warn("bad broadcast payload", zap.Error(err), zap.String("channel", channel))
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func redisChannelKey(channel string) string {
	return redisChannelPrefix + strings.TrimSpace(channel)
}
