package redis

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/tabstate/internal/logging"
	backend "github.com/redis/go-redis/v9"
)

const (
	// DefaultPublishBuffer is the number of lines queued before lines are dropped.
	DefaultPublishBuffer = 1024
	// DefaultPublishTimeout bounds a single PUBLISH.
	DefaultPublishTimeout = 2 * time.Second
)

// Publisher is a ports.Broadcaster that publishes each line to a Redis channel.
// Lines are queued and sent from a single goroutine, so Broadcast never waits on
// the network; when the queue is full lines are dropped.
type Publisher struct {
	client  backend.UniversalClient
	channel string
	logger  *slog.Logger
	timeout time.Duration

	queue    chan string
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
	closed   atomic.Bool
	dropping atomic.Bool
	dropped  atomic.Uint64
}

type PublisherOption func(*publisherConfig)

type publisherConfig struct {
	logger  *slog.Logger
	buffer  int
	timeout time.Duration
}

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(c *publisherConfig) { c.logger = logger }
}

func WithPublishBuffer(n int) PublisherOption {
	return func(c *publisherConfig) {
		if n > 0 {
			c.buffer = n
		}
	}
}

func WithPublishTimeout(d time.Duration) PublisherOption {
	return func(c *publisherConfig) { c.timeout = d }
}

// NewPublisher starts a publisher for channel. An empty channel means
// DefaultChannel.
func NewPublisher(client backend.UniversalClient, channel string, opts ...PublisherOption) *Publisher {
	cfg := publisherConfig{
		logger:  logging.NewNop(),
		buffer:  DefaultPublishBuffer,
		timeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if channel == "" {
		channel = DefaultChannel
	}
	p := &Publisher{
		client:  client,
		channel: channel,
		logger:  cfg.logger,
		timeout: cfg.timeout,
		queue:   make(chan string, cfg.buffer),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Channel returns the channel lines are published to.
func (p *Publisher) Channel() string { return p.channel }

// Dropped returns the number of lines dropped because the queue was full.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

// Broadcast queues line for publishing. It never blocks.
func (p *Publisher) Broadcast(line string) {
	if p.closed.Load() {
		return
	}
	select {
	case p.queue <- line:
		p.dropping.Store(false)
	default:
		p.dropped.Add(1)
		if !p.dropping.Swap(true) {
			p.logger.Warn("redis publish queue full, dropping lines", "channel", p.channel)
		}
	}
}

// Close publishes the lines already queued and stops the publisher.
func (p *Publisher) Close(ctx context.Context) error {
	p.once.Do(func() {
		p.closed.Store(true)
		close(p.stop)
	})
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for {
		select {
		case line := <-p.queue:
			p.publish(line)
		case <-p.stop:
			for {
				select {
				case line := <-p.queue:
					p.publish(line)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) publish(line string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, line).Err(); err != nil {
		p.logger.Warn("redis publish failed", "channel", p.channel, "err", err)
	}
}
