// Package mq wraps the RabbitMQ channel shared by the submit
// endpoint and the judge worker pool.
package mq

import (
	"context"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	appErr "grader/pkg/errors"
	"grader/pkg/utils/logger"
)

const (
	// Channel creation is retried a bounded number of times at
	// startup; queue declaration retries until it succeeds.
	channelRetryMax = 5
	retryBackoff    = 5 * time.Second
)

// RabbitMQ holds one connection and one channel. The channel is
// shared read-only across workers; amqp channels are safe for the
// concurrent consume/ack pattern used here.
type RabbitMQ struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Connect dials the broker and opens a channel, retrying up to
// channelRetryMax times with a fixed backoff.
func Connect(ctx context.Context, url string) (*RabbitMQ, error) {
	var lastErr error
	for attempt := 1; attempt <= channelRetryMax; attempt++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			ch, chErr := conn.Channel()
			if chErr == nil {
				return &RabbitMQ{conn: conn, ch: ch}, nil
			}
			_ = conn.Close()
			err = chErr
		}
		lastErr = err
		logger.Warn(ctx, "rabbitmq channel creation failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if err := sleep(ctx, retryBackoff); err != nil {
			return nil, err
		}
	}
	return nil, appErr.Wrapf(lastErr, appErr.QueueError, "create rabbitmq channel failed after %d attempts", channelRetryMax)
}

// DeclareQueue declares the queue with default options, retrying
// indefinitely until the broker accepts or the context is cancelled.
func (q *RabbitMQ) DeclareQueue(ctx context.Context, name string) error {
	for {
		_, err := q.ch.QueueDeclare(
			name,
			false, // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,
		)
		if err == nil {
			logger.Info(ctx, "queue declared", zap.String("queue", name))
			return nil
		}
		logger.Warn(ctx, "queue declare failed", zap.String("queue", name), zap.Error(err))
		if err := sleep(ctx, retryBackoff); err != nil {
			return err
		}
	}
}

// Consume registers a consumer with the given tag and manual acks.
func (q *RabbitMQ) Consume(queue, consumerTag string) (<-chan amqp.Delivery, error) {
	deliveries, err := q.ch.Consume(
		queue,
		consumerTag,
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.ConsumeFailed, "register consumer %s failed", consumerTag)
	}
	return deliveries, nil
}

// Publish sends a message to the queue through the default exchange.
func (q *RabbitMQ) Publish(ctx context.Context, queue string, body []byte) error {
	err := q.ch.Publish(
		"", // default exchange
		queue,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
	if err != nil {
		return appErr.Wrapf(err, appErr.PublishFailed, "publish to %s failed", queue)
	}
	return nil
}

// Close closes the channel and the connection.
func (q *RabbitMQ) Close() error {
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
