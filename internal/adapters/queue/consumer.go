package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// HandlerFunc processes one raw queue payload. Errors are logged, never
// redelivered: deliveries are auto-acked and all recovery (retry messages,
// lease expiry) is the handler's own policy.
type HandlerFunc func(ctx context.Context, body []byte) error

// ConsumerOptions configures a queue consumer.
type ConsumerOptions struct {
	Client      *Client
	Handler     HandlerFunc
	Prefetch    int // per-consumer QoS; defaults to 10
	Concurrency int // handler goroutines; defaults to 1
	Logger      *slog.Logger
}

// Consumer pulls generation step messages off the queue and dispatches them
// to the handler across a fixed pool of goroutines.
type Consumer struct {
	client      *Client
	handler     HandlerFunc
	prefetch    int
	concurrency int
	logger      *slog.Logger
}

// NewConsumer creates a consumer with the given options.
func NewConsumer(opts ConsumerOptions) (*Consumer, error) {
	if opts.Client == nil {
		return nil, errors.New("queue client is required")
	}
	if opts.Handler == nil {
		return nil, errors.New("handler is required")
	}
	if opts.Prefetch <= 0 {
		opts.Prefetch = 10
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		client:      opts.Client,
		handler:     opts.Handler,
		prefetch:    opts.Prefetch,
		concurrency: opts.Concurrency,
		logger:      logger.With("component", "queue_consumer"),
	}, nil
}

// Run consumes until the context is cancelled or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.client.channel.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := c.client.channel.Consume(
		c.client.queueName,
		"",    // consumer tag
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume from %s: %w", c.client.queueName, err)
	}

	c.logger.InfoContext(ctx, "consumer started",
		"queue", c.client.queueName,
		"prefetch", c.prefetch,
		"concurrency", c.concurrency,
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.concurrency; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case delivery, ok := <-deliveries:
					if !ok {
						return nil
					}
					if err := c.handler(gctx, delivery.Body); err != nil {
						c.logger.ErrorContext(gctx, "message handler failed", "err", err)
					}
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "consumer stopped", "queue", c.client.queueName)
	return ctx.Err()
}
