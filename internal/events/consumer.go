package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/logger"
)

// DefaultViewsQueue is the durable queue the views worker drains.
const DefaultViewsQueue = "biotree-profile-views"

var ErrMalformed = errors.New("malformed event")

// Handler applies one decoded event.
type Handler func(ctx context.Context, event *ProfileEvent) error

// Outcome is what happens to a delivery after processing.
type Outcome int

const (
	Ack Outcome = iota
	Requeue
	// Drop rejects without requeue. The broker dead-letters the message when
	// the queue has a dead-letter exchange and discards it otherwise.
	Drop
)

// Settle caps retries at one redelivery: a failure on a message the broker
// has already redelivered is dropped instead of requeued again.
func Settle(outcome Outcome, redelivered bool) Outcome {
	if outcome == Requeue && redelivered {
		return Drop
	}
	return outcome
}

// Dispatch decodes body and runs the handler registered for routingKey.
// Malformed or unknown messages are acked and dropped; handler failures are
// requeued.
func Dispatch(ctx context.Context, handlers map[EventType]Handler, routingKey string, body []byte, log *logger.Logger) Outcome {
	h, ok := handlers[EventType(routingKey)]
	if !ok {
		log.Warn("unknown routing key, dropping", "routing_key", routingKey)
		return Ack
	}

	var ev ProfileEvent
	if err := json.Unmarshal(body, &ev); err != nil || ev.AccountID == "" {
		log.Warn("dropping malformed event", "routing_key", routingKey, "error", fmt.Errorf("%w: %v", ErrMalformed, err))
		return Ack
	}

	if err := h(ctx, &ev); err != nil {
		log.Error("error processing event", "routing_key", routingKey, "event_id", ev.EventID, "account_id", ev.AccountID, "error", err)
		return Requeue
	}
	return Ack
}

type EventConsumer struct {
	conn      *amqp091.Connection
	channel   *amqp091.Channel
	exchange  string
	queueName string
	handlers  map[EventType]Handler
	timeout   time.Duration
	log       *logger.Logger

	shutdown chan struct{}
	wg       sync.WaitGroup
}

// NewEventConsumer dials RabbitMQ and sets a prefetch of 10.
func NewEventConsumer(rabbitURI, exchange, queue string, handlers map[EventType]Handler, timeout time.Duration, log *logger.Logger) (*EventConsumer, error) {
	if rabbitURI == "" {
		return nil, fmt.Errorf("rabbitmq uri is required for the consumer")
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	if queue == "" {
		queue = DefaultViewsQueue
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	if err := channel.Qos(
		10,    // prefetch count
		0,     // prefetch size
		false, // global
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return &EventConsumer{
		conn:      conn,
		channel:   channel,
		exchange:  exchange,
		queueName: queue,
		handlers:  handlers,
		timeout:   timeout,
		log:       log,
		shutdown:  make(chan struct{}),
	}, nil
}

// Start declares the exchange and queue, binds one routing key per handler
// and begins consuming in the background.
func (c *EventConsumer) Start() error {
	if err := declareExchange(c.channel, c.exchange); err != nil {
		return err
	}

	_, err := c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	for key := range c.handlers {
		if err := c.channel.QueueBind(c.queueName, string(key), c.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue to exchange %s with key %s: %w", c.exchange, key, err)
		}
		c.log.Info("bound queue", "queue", c.queueName, "exchange", c.exchange, "routing_key", key)
	}

	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consume(msgs)
	}()

	c.log.Info("event consumer started", "queue", c.queueName)
	return nil
}

// consume returns on Close or when the broker closes the delivery channel.
func (c *EventConsumer) consume(msgs <-chan amqp091.Delivery) {
	for {
		select {
		case <-c.shutdown:
			c.log.Info("stopping event consumer")
			return
		case msg, ok := <-msgs:
			if !ok {
				c.log.Warn("message channel closed")
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
			outcome := Settle(Dispatch(ctx, c.handlers, msg.RoutingKey, msg.Body, c.log), msg.Redelivered)
			cancel()

			switch outcome {
			case Requeue:
				if err := msg.Nack(false, true); err != nil {
					c.log.Error("error NACKing message", "error", err)
				}
			case Drop:
				c.log.Error("dropping message after failed redelivery", "routing_key", msg.RoutingKey, "message_id", msg.MessageId)
				if err := msg.Nack(false, false); err != nil {
					c.log.Error("error NACKing message", "error", err)
				}
			default:
				if err := msg.Ack(false); err != nil {
					c.log.Error("error ACKing message", "error", err)
				}
			}
		}
	}
}

// Wait blocks until the consume loop exits.
func (c *EventConsumer) Wait() {
	c.wg.Wait()
}

func (c *EventConsumer) Close() error {
	close(c.shutdown)
	c.wg.Wait()

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.log.Warn("error closing RabbitMQ channel", "error", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}
	return nil
}
