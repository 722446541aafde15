package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gosuda/flowboard/internal/engine"
)

// Broadcaster publishes card events to the board and card channels so the
// websocket hub can fan them out. Satisfies engine.Broadcaster.
type Broadcaster struct {
	pubsub *PubSub
}

var _ engine.Broadcaster = (*Broadcaster)(nil)

func NewBroadcaster(pubsub *PubSub) *Broadcaster {
	return &Broadcaster{pubsub: pubsub}
}

func (b *Broadcaster) BroadcastCardEvent(ctx context.Context, evt engine.CardEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("redis.Broadcaster.BroadcastCardEvent: marshal: %w", err)
	}

	if err := b.pubsub.Publish(ctx, BoardChannel(evt.BoardID), payload); err != nil {
		return err
	}
	if err := b.pubsub.Publish(ctx, CardChannel(evt.CardID), payload); err != nil {
		return err
	}

	return nil
}
