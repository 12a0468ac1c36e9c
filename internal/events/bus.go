package events

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

const pollChannelPrefix = "poll:"

// ChannelForPoll names the pub/sub channel carrying one poll's room events.
func ChannelForPoll(pollID string) string {
	return pollChannelPrefix + pollID
}

// PollFromChannel extracts the poll id from a channel name.
func PollFromChannel(channel string) string {
	return strings.TrimPrefix(channel, pollChannelPrefix)
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

func (s *Subscriber) Subscribe(ctx context.Context, patterns []string, handler func(channel string, payload []byte)) error {
	sub := s.client.PSubscribe(ctx, patterns...)
	defer sub.Close()

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		handler(msg.Channel, []byte(msg.Payload))
	}
}
