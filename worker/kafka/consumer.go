package kafka

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"chatWorker/worker/models"
)

type EventHandler = func(ctx context.Context, ev *models.ChatEvent) error

// Consumer reads chat events from a topic as part of a consumer group.
type Consumer struct {
	consumer sarama.ConsumerGroup
	topic    string
	logger   *zap.Logger
}

func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	c, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{consumer: c, topic: topic, logger: logger}, nil
}

type consumerHandler struct {
	fn     EventHandler
	ctx    context.Context
	logger *zap.Logger
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var ev models.ChatEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			h.logger.Warn("Skipping undecodable chat event",
				zap.Int32("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			session.MarkMessage(msg, "")
			continue
		}
		if err := h.fn(h.ctx, &ev); err != nil {
			// The handler only fails when the worker is shutting down; leave
			// the offset so the event is redelivered.
			return err
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

// Consume blocks until ctx is cancelled, rejoining the group after rebalances.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	h := &consumerHandler{fn: handler, ctx: ctx, logger: c.logger}
	for {
		if err := c.consumer.Consume(ctx, []string{c.topic}, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}
