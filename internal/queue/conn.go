// Package queue carries engine requests over RabbitMQ so the engine can run
// in a separate worker process. Requests go to a durable queue; responses are
// published to the request's ReplyTo queue with the same CorrelationId.
package queue

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RequestQueue is the durable queue consumed by workers.
const RequestQueue = "lbp.simulation.requests"

// Dial connects to RabbitMQ, retrying up to maxRetries times with delay between attempts.
func Dial(ctx context.Context, url string, maxRetries int, delay time.Duration, logger *log.Logger) (*amqp.Connection, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			logger.Printf("RabbitMQ connect failed (attempt %d/%d): %v. Retrying in %v...", attempt, maxRetries+1, lastErr, delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("connect to rabbitmq after %d attempts: %w", maxRetries+1, lastErr)
}

// declareRequestQueue declares the durable request queue on ch.
func declareRequestQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}
