package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/logger"
)

type EventPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	enabled  bool
	log      *logger.Logger

	// amqp channels are not safe for concurrent publishes
	mu sync.Mutex
}

// NewEventPublisher dials RabbitMQ and declares the topic exchange. An empty
// URI gives a disabled publisher that drops every event.
func NewEventPublisher(rabbitURI, exchange string, log *logger.Logger) (*EventPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if rabbitURI == "" {
		log.Warn("RabbitMQ URI is empty, event publishing is disabled")
		return &EventPublisher{exchange: exchange, log: log}, nil
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
	if err := declareExchange(channel, exchange); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	log.Info("event publisher initialized", "exchange", exchange)
	return &EventPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		enabled:  true,
		log:      log,
	}, nil
}

func declareExchange(ch *amqp091.Channel, exchange string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	return nil
}

func (p *EventPublisher) Enabled() bool { return p.enabled }

func (p *EventPublisher) PublishProfileEvent(ctx context.Context, event *ProfileEvent) error {
	if !p.enabled {
		p.log.Debug("event publishing disabled, skipping event", "event_type", event.EventType)
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx,
		p.exchange,              // exchange
		string(event.EventType), // routing key
		false,                   // mandatory
		false,                   // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.EventID,
			Timestamp:    time.Now(),
			Body:         body,
			Headers: amqp091.Table{
				"event_type": string(event.EventType),
				"account_id": event.AccountID,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *EventPublisher) Close() error {
	if !p.enabled {
		return nil
	}
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Warn("error closing RabbitMQ channel", "error", err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}
	return nil
}

// MockPublisher records events in memory.
type MockPublisher struct {
	mu      sync.Mutex
	Events  []ProfileEvent
	Err     error
	Disable bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{Events: make([]ProfileEvent, 0)}
}

func (m *MockPublisher) PublishProfileEvent(_ context.Context, event *ProfileEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, *event)
	return nil
}

func (m *MockPublisher) Enabled() bool { return !m.Disable }

func (m *MockPublisher) Close() error { return nil }

func (m *MockPublisher) GetEvents() []ProfileEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ProfileEvent, len(m.Events))
	copy(out, m.Events)
	return out
}

func (m *MockPublisher) ClearEvents() {
	m.mu.Lock()
	m.Events = make([]ProfileEvent, 0)
	m.mu.Unlock()
}
