package registry

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/lessonbin/quizdoc/pkg/http/ws"
)

// Broadcaster listens on the Redis registry-update channel and forwards
// events to every connected websocket client. Running it off pub/sub keeps
// fan-out working when multiple API replicas publish documents.
type Broadcaster struct {
	redis   *redis.Client
	hub     *ws.Hub
	channel string
	logger  zerolog.Logger
}

func NewBroadcaster(redis *redis.Client, hub *ws.Hub, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = "registry:updates"
	}
	return &Broadcaster{
		redis:   redis,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "registry_broadcaster").Logger(),
	}
}

// Run subscribes to the update channel and blocks until the context ends.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.redis == nil || b.hub == nil {
		return nil
	}

	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.forward(msg.Payload)
		}
	}
}

func (b *Broadcaster) forward(payload string) {
	var evt updateEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		b.logger.Warn().Err(err).Msg("decode registry update event")
		return
	}

	wsEntries := make([]ws.RegistryEntry, 0, len(evt.Entries))
	for _, e := range evt.Entries {
		wsEntries = append(wsEntries, ws.RegistryEntry{ID: e.ID, Title: e.Title, URL: e.URL})
	}
	raw, err := json.Marshal(ws.RegistryUpdatePayload{Entries: wsEntries})
	if err != nil {
		b.logger.Warn().Err(err).Msg("encode registry ws payload")
		return
	}

	b.hub.Broadcast(ws.Message{Type: ws.TypeRegistryUpdate, Payload: raw})
}
