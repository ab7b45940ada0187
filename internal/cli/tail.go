package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/tabstate/internal/config"
	"github.com/aretw0/tabstate/pkg/adapters/redis"
	"github.com/aretw0/tabstate/pkg/debug"
)

// TailOptions configures Tail.
type TailOptions struct {
	// Addr is the debug server to dial. Ignored when FromRedis is set.
	Addr      string
	FromRedis bool
	Redis     config.RedisConfig
	Out       io.Writer
	// Pretty rewrites lines as "START kind id" and "END id elapsed".
	Pretty bool
}

// Tail streams the dispatch log from a debug server or a redis channel to Out
// until ctx is done or the source closes.
func Tail(ctx context.Context, opts TailOptions) error {
	handle := func(line string) error {
		_, err := fmt.Fprintln(opts.Out, format(line, opts.Pretty))
		return err
	}

	if !opts.FromRedis {
		return debug.Tail(ctx, opts.Addr, handle)
	}
	if !opts.Redis.Enabled() {
		return fmt.Errorf("redis.addr is not configured")
	}
	client := newRedisClient(opts.Redis)
	defer client.Close()
	channel := opts.Redis.Channel
	if channel == "" {
		channel = redis.DefaultChannel
	}
	return redis.Tail(ctx, client, channel, handle)
}

func format(line string, pretty bool) string {
	if !pretty {
		return line
	}
	l, err := debug.ParseLine(line)
	if err != nil {
		return line
	}
	if l.Phase == debug.PhaseStart {
		return fmt.Sprintf("%-5s %-28s %s", l.Phase, l.Kind, l.ID)
	}
	return fmt.Sprintf("%-5s %-28s %s", l.Phase, l.Elapsed, l.ID)
}
