package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lbp-lab/internal/domain"
)

type fakeAck struct {
	acked, nacked, requeued int
}

func (a *fakeAck) Ack(tag uint64, multiple bool) error {
	a.acked++
	return nil
}

func (a *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked++
	if requeue {
		a.requeued++
	}
	return nil
}

func (a *fakeAck) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type fakeReplier struct {
	key  string
	msg  amqp.Publishing
	err  error
	sent int
}

func (r *fakeReplier) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if r.err != nil {
		return r.err
	}
	r.key = key
	r.msg = msg
	r.sent++
	return nil
}

func testWorker(reply replier) *Worker {
	w := newWorker(WorkerOptions{})
	w.reply = reply
	return w
}

func delivery(ack amqp.Acknowledger, body string) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger:  ack,
		Body:          []byte(body),
		ReplyTo:       "amq.gen-reply",
		CorrelationId: "42",
	}
}

func TestWorker_HandleReplies(t *testing.T) {
	ack := &fakeAck{}
	reply := &fakeReplier{}
	w := testWorker(reply)

	outcome := w.Handle(context.Background(), delivery(ack, `{"id":42,"kind":"run-simulation","steps":6}`))
	assert.Equal(t, OutcomeAck, outcome)
	assert.Equal(t, 1, ack.acked)
	assert.Equal(t, 0, ack.nacked)

	require.Equal(t, 1, reply.sent)
	assert.Equal(t, "amq.gen-reply", reply.key)
	assert.Equal(t, "42", reply.msg.CorrelationId)

	var resp domain.Response
	require.NoError(t, json.Unmarshal(reply.msg.Body, &resp))
	assert.Equal(t, uint64(42), resp.ID)
	assert.Equal(t, domain.ResponseSuccess, resp.Type)
	assert.Len(t, resp.Snapshots, 7)
}

func TestWorker_HandleEngineErrorIsAcked(t *testing.T) {
	ack := &fakeAck{}
	reply := &fakeReplier{}
	w := testWorker(reply)

	outcome := w.Handle(context.Background(), delivery(ack, `{"id":1,"kind":"warp"}`))
	assert.Equal(t, OutcomeAck, outcome)
	assert.Equal(t, 1, ack.acked)

	var resp domain.Response
	require.NoError(t, json.Unmarshal(reply.msg.Body, &resp))
	assert.True(t, resp.IsError())
	assert.Equal(t, domain.ErrUnknownKind.Error(), resp.Error)
}

func TestWorker_HandleMalformedNacksWithoutRequeue(t *testing.T) {
	ack := &fakeAck{}
	reply := &fakeReplier{}
	w := testWorker(reply)

	outcome := w.Handle(context.Background(), delivery(ack, `not json`))
	assert.Equal(t, OutcomeNack, outcome)
	assert.Equal(t, 1, ack.nacked)
	assert.Equal(t, 0, ack.requeued)
	assert.Equal(t, 0, reply.sent)
}

func TestWorker_HandleReplyFailureRequeues(t *testing.T) {
	ack := &fakeAck{}
	w := testWorker(&fakeReplier{err: errors.New("channel closed")})

	outcome := w.Handle(context.Background(), delivery(ack, `{"kind":"calculate","steps":10}`))
	assert.Equal(t, OutcomeReplyError, outcome)
	assert.Equal(t, 1, ack.requeued)
	assert.Equal(t, 0, ack.acked)
}

func TestWorker_HandleWithoutReplyTo(t *testing.T) {
	ack := &fakeAck{}
	reply := &fakeReplier{}
	w := testWorker(reply)

	msg := delivery(ack, `{"kind":"calculate","steps":10,"currentStep":3}`)
	msg.ReplyTo = ""
	assert.Equal(t, OutcomeAck, w.Handle(context.Background(), msg))
	assert.Equal(t, 0, reply.sent)
}

func TestClient_Deliver(t *testing.T) {
	c := &Client{pending: make(map[string]chan domain.Response)}
	wait := make(chan domain.Response, 1)
	c.pending["7"] = wait

	body, err := json.Marshal(domain.Response{ID: 7, Type: domain.ResponseSuccess})
	require.NoError(t, err)

	assert.False(t, c.deliver("8", body), "unknown correlation id")
	assert.False(t, c.deliver("7", []byte("{")), "undecodable body")
	assert.True(t, c.deliver("7", body))

	resp := <-wait
	assert.Equal(t, uint64(7), resp.ID)
	assert.Empty(t, c.pending)

	assert.False(t, c.deliver("7", body), "second reply for same id")
}
