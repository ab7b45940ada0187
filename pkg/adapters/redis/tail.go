package redis

import (
	"context"
	"fmt"

	backend "github.com/redis/go-redis/v9"
)

// Tail subscribes to channel and calls handle for every message until ctx is done
// or handle fails.
func Tail(ctx context.Context, client backend.UniversalClient, channel string, handle func(line string) error) error {
	if channel == "" {
		channel = DefaultChannel
	}
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("redis subscribe %s: %w", channel, err)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := handle(msg.Payload); err != nil {
				return err
			}
		}
	}
}
