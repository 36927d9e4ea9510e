package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"lbp-lab/internal/dispatch"
	"lbp-lab/internal/domain"
	"lbp-lab/internal/observability"
)

// Message outcomes recorded in metrics.
const (
	OutcomeAck        = "ack"
	OutcomeNack       = "nack"
	OutcomeReplyError = "reply_error"
)

// replier publishes a reply. *amqp.Channel satisfies it.
type replier interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// WorkerOptions configures a Worker.
type WorkerOptions struct {
	Queue    string // RequestQueue if empty
	Prefetch int    // 1 if zero
	Logger   *log.Logger

	// Exec computes a response. dispatch.Execute if nil.
	Exec dispatch.ExecFunc
}

// Worker consumes engine requests and publishes responses.
type Worker struct {
	ch     *amqp.Channel
	queue  string
	logger *log.Logger
	exec   dispatch.ExecFunc
	reply  replier
}

// NewWorker opens a channel on conn and declares the request queue.
func NewWorker(conn *amqp.Connection, opts WorkerOptions) (*Worker, error) {
	if opts.Queue == "" {
		opts.Queue = RequestQueue
	}
	if opts.Prefetch <= 0 {
		opts.Prefetch = 1
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareRequestQueue(ch, opts.Queue); err != nil {
		ch.Close()
		return nil, err
	}
	if err := ch.Qos(opts.Prefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	w := newWorker(opts)
	w.ch = ch
	w.reply = ch
	return w, nil
}

func newWorker(opts WorkerOptions) *Worker {
	w := &Worker{
		queue:  opts.Queue,
		logger: opts.Logger,
		exec:   opts.Exec,
	}
	if w.logger == nil {
		w.logger = log.New(io.Discard, "", 0)
	}
	if w.exec == nil {
		w.exec = dispatch.Execute
	}
	return w
}

// Run consumes until ctx is cancelled or the delivery channel closes.
func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.ch.Consume(
		w.queue,
		"",    // consumer
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", w.queue, err)
	}

	w.logger.Printf("Consuming %s", w.queue)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			w.Handle(ctx, msg)
		}
	}
}

// Handle processes one delivery. Malformed requests are rejected without
// requeue; a failed reply publish requeues the message.
func (w *Worker) Handle(ctx context.Context, msg amqp.Delivery) string {
	req, err := domain.DecodeRequest(msg.Body, "")
	if err != nil {
		w.logger.Printf("malformed request %q: %v", msg.CorrelationId, err)
		msg.Nack(false, false)
		observability.RecordQueueMessage(OutcomeNack)
		return OutcomeNack
	}

	resp := w.exec(req)
	resp.ID = req.ID
	resp.Kind = req.Kind
	if resp.IsError() {
		w.logger.Printf("%s #%d failed: %s", req.Kind, req.ID, resp.Error)
	}

	if msg.ReplyTo != "" {
		if err := w.publishReply(ctx, msg, resp); err != nil {
			w.logger.Printf("reply to %s: %v", msg.ReplyTo, err)
			msg.Nack(false, true)
			observability.RecordQueueMessage(OutcomeReplyError)
			return OutcomeReplyError
		}
	}

	msg.Ack(false)
	observability.RecordQueueMessage(OutcomeAck)
	return OutcomeAck
}

func (w *Worker) publishReply(ctx context.Context, msg amqp.Delivery, resp domain.Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	return w.reply.PublishWithContext(ctx,
		"",          // exchange
		msg.ReplyTo, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: msg.CorrelationId,
			Body:          body,
		},
	)
}

// Close closes the worker channel.
func (w *Worker) Close() error {
	if w.ch != nil {
		return w.ch.Close()
	}
	return nil
}
