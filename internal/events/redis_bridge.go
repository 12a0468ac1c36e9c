package events

import (
	"context"

	"livepoll/pkg/logger"
)

// LocalBroadcaster is the in-process fan-out the bridge re-delivers into.
type LocalBroadcaster interface {
	Broadcast(pollID string, payload []byte)
}

// RedisBroadcaster publishes room events to the poll's channel instead of
// delivering locally. Every instance, including the publisher, receives the
// event back through its bridge subscription, so the room contract is the
// same as direct delivery.
type RedisBroadcaster struct {
	publisher *Publisher
	logger    *logger.Logger
}

func NewRedisBroadcaster(publisher *Publisher, l *logger.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{publisher: publisher, logger: l}
}

func (b *RedisBroadcaster) Broadcast(pollID string, payload []byte) {
	if err := b.publisher.Publish(context.Background(), ChannelForPoll(pollID), payload); err != nil {
		b.logger.Errorf("publish to %s: %s", ChannelForPoll(pollID), err)
	}
}

// RedisBridge subscribes to every poll channel and re-delivers each event to
// the local hub.
type RedisBridge struct {
	subscriber *Subscriber
	hub        LocalBroadcaster
}

func NewRedisBridge(subscriber *Subscriber, hub LocalBroadcaster) *RedisBridge {
	return &RedisBridge{subscriber: subscriber, hub: hub}
}

func (b *RedisBridge) Run(ctx context.Context) error {
	return b.subscriber.Subscribe(ctx, []string{pollChannelPrefix + "*"}, func(channel string, payload []byte) {
		b.hub.Broadcast(PollFromChannel(channel), payload)
	})
}
