// Package queue provides the RabbitMQ transport for generation step messages.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/target/quiz-pipeline/internal/domain/model"
)

const publishTimeout = 5 * time.Second

// ClientOptions configures a queue client.
type ClientOptions struct {
	URL       string
	QueueName string
	Logger    *slog.Logger
}

// Client wraps an AMQP connection and channel bound to one durable queue. It
// implements core.QueuePublisher.
type Client struct {
	conn      *amqp091.Connection
	channel   *amqp091.Channel
	queueName string
	logger    *slog.Logger
}

// Dial connects to RabbitMQ and declares the durable generation queue.
func Dial(opts ClientOptions) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.New("queue URL is required")
	}
	if opts.QueueName == "" {
		return nil, errors.New("queue name is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "queue")

	conn, err := amqp091.Dial(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := channel.QueueDeclare(
		opts.QueueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", opts.QueueName, err)
	}

	return &Client{
		conn:      conn,
		channel:   channel,
		queueName: opts.QueueName,
		logger:    logger,
	}, nil
}

// QueueName returns the declared queue name.
func (c *Client) QueueName() string {
	return c.queueName
}

// Publish enqueues a message for immediate delivery.
func (c *Client) Publish(ctx context.Context, msg *model.JobMessage) error {
	body, err := msg.Encode()
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := c.channel.PublishWithContext(
		pubCtx,
		"",          // default exchange
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("publish to %s: %w", c.queueName, err)
	}
	return nil
}

// PublishAfter enqueues a message once the delay has elapsed. The timer lives
// in this process: a crash before it fires loses the message, and lease
// expiry is what recovers the subject. The passed context only scopes the
// eventual publish attempt's logging; cancellation does not stop the timer.
func (c *Client) PublishAfter(_ context.Context, msg *model.JobMessage, delay time.Duration) error {
	if delay <= 0 {
		return c.Publish(context.Background(), msg)
	}

	m := *msg
	time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := c.Publish(ctx, &m); err != nil {
			c.logger.ErrorContext(ctx, "deferred publish failed",
				"err", err,
				"subject_id", m.SubjectID,
				"batch_number", m.BatchNumber,
				"retry_count", m.RetryCount,
			)
		}
	})
	return nil
}

// Close tears down the channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}
