package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"

	"lbp-lab/internal/domain"
)

// ErrClientClosed is returned by Call after the reply consumer stops.
var ErrClientClosed = errors.New("queue client closed")

// Client publishes requests and waits for their replies on an exclusive queue.
type Client struct {
	ch         *amqp.Channel
	queue      string
	replyQueue string
	nextID     atomic.Uint64

	mu      sync.Mutex
	pending map[string]chan domain.Response
	closed  bool
}

// NewClient declares an exclusive reply queue on conn and starts consuming it.
func NewClient(conn *amqp.Connection, queue string) (*Client, error) {
	if queue == "" {
		queue = RequestQueue
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareRequestQueue(ch, queue); err != nil {
		ch.Close()
		return nil, err
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare reply queue: %w", err)
	}

	replies, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("consume replies: %w", err)
	}

	c := &Client{
		ch:         ch,
		queue:      queue,
		replyQueue: q.Name,
		pending:    make(map[string]chan domain.Response),
	}
	go c.readReplies(replies)
	return c, nil
}

// Call publishes req and waits for its response or ctx.
// The request id is assigned by the client.
func (c *Client) Call(ctx context.Context, req domain.Request) (*domain.Response, error) {
	req.ID = c.nextID.Add(1)
	corrID := strconv.FormatUint(req.ID, 10)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	wait := make(chan domain.Response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClientClosed
	}
	c.pending[corrID] = wait
	c.mu.Unlock()
	defer c.forget(corrID)

	err = c.ch.PublishWithContext(ctx, "", c.queue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: corrID,
		ReplyTo:       c.replyQueue,
		DeliveryMode:  amqp.Persistent,
		Body:          body,
	})
	if err != nil {
		return nil, fmt.Errorf("publish request: %w", err)
	}

	select {
	case resp, ok := <-wait:
		if !ok {
			return nil, ErrClientClosed
		}
		return &resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) readReplies(replies <-chan amqp.Delivery) {
	for msg := range replies {
		c.deliver(msg.CorrelationId, msg.Body)
	}

	c.mu.Lock()
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
}

// deliver routes a reply to its waiting caller. Unknown or undecodable replies are dropped.
func (c *Client) deliver(corrID string, body []byte) bool {
	var resp domain.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return false
	}

	c.mu.Lock()
	wait, ok := c.pending[corrID]
	if ok {
		delete(c.pending, corrID)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}

	wait <- resp
	return true
}

func (c *Client) forget(corrID string) {
	c.mu.Lock()
	delete(c.pending, corrID)
	c.mu.Unlock()
}

// Close closes the client channel.
func (c *Client) Close() error {
	return c.ch.Close()
}
