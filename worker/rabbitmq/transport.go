// Package rabbitmq bridges chat events and replies over AMQP queues.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"chatWorker/worker/models"
)

var ErrDeliveriesClosed = errors.New("amqp delivery channel closed")

type EventHandler = func(ctx context.Context, ev *models.ChatEvent) error

// Transport consumes chat events from one durable queue and publishes
// replies to another.
type Transport struct {
	conn         *amqp.Connection
	ch           *amqp.Channel
	eventsQueue  string
	repliesQueue string
	logger       *zap.Logger
}

func NewTransport(url, eventsQueue, repliesQueue string, prefetch int, logger *zap.Logger) (*Transport, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	for _, name := range []string{eventsQueue, repliesQueue} {
		if _, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,
		); err != nil {
			ch.Close()
			conn.Close()
			return nil, err
		}
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Transport{
		conn:         conn,
		ch:           ch,
		eventsQueue:  eventsQueue,
		repliesQueue: repliesQueue,
		logger:       logger,
	}, nil
}

// Consume delivers events to handler until ctx is cancelled. Events are
// acked once handed off; undecodable ones are dropped.
func (t *Transport) Consume(ctx context.Context, handler EventHandler) error {
	deliveries, err := t.ch.Consume(t.eventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case del, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			if err := t.deliver(ctx, del, handler); err != nil {
				return err
			}
		}
	}
}

func (t *Transport) deliver(ctx context.Context, del amqp.Delivery, handler EventHandler) error {
	ev, err := decodeEvent(del.Body)
	if err != nil {
		t.logger.Warn("Dropping undecodable chat event", zap.Error(err))
		return del.Nack(false, false)
	}

	if err := handler(ctx, ev); err != nil {
		if nackErr := del.Nack(false, true); nackErr != nil {
			t.logger.Error("Failed to requeue chat event", zap.Error(nackErr))
		}
		return err
	}
	return del.Ack(false)
}

func (t *Transport) SendReply(ctx context.Context, reply models.Reply) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return t.ch.Publish("", t.repliesQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp.Persistent,
		MessageId:    reply.TraceID,
	})
}

func (t *Transport) Close() error {
	chErr := t.ch.Close()
	connErr := t.conn.Close()
	return errors.Join(chErr, connErr)
}

func decodeEvent(body []byte) (*models.ChatEvent, error) {
	var ev models.ChatEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
