package push

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/equipdesk/equipdesk/internal/events"
)

// Bridge relays committed ticket events across processes over a redis
// pub/sub channel, so every instance's hub sees changes made by its peers.
type Bridge struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewBridge builds a bridge on the given redis channel.
func NewBridge(client *redis.Client, channel string, logger *zap.Logger) *Bridge {
	return &Bridge{client: client, channel: channel, logger: logger}
}

// BindPublisher forwards every locally dispatched event to redis.
func (b *Bridge) BindPublisher(dispatcher events.Dispatcher) {
	for _, eventType := range events.TicketEvents() {
		dispatcher.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
			data, err := json.Marshal(event)
			if err != nil {
				return err
			}
			if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
				b.logger.Warn("event publish failed", zap.Error(err))
				return err
			}
			return nil
		})
	}
}

// Listen consumes peer events and dispatches them into the hub until ctx is
// cancelled. Locally published events come back over the channel too; the
// extra refetch they trigger is harmless because delivery is snapshot-replace.
func (b *Bridge) Listen(ctx context.Context, hub *Hub) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = sub.Close() }()

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var event events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("malformed peer event", zap.Error(err))
				continue
			}
			hub.Dispatch(ctx, event)
		}
	}
}
