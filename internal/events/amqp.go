package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"eco-loop-rewards-go/internal/models"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPPublisher sends events to a durable topic exchange, routed by event
// type. A dropped connection is redialed on the next publish.
type AMQPPublisher struct {
	cfg models.EventsConfig

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPPublisher(cfg models.EventsConfig) (*AMQPPublisher, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = "eco-loop.events"
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}

	p := &AMQPPublisher{cfg: cfg}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return p, nil
}

func (p *AMQPPublisher) dsn() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		p.cfg.User, p.cfg.Password, p.cfg.Host, p.cfg.Port, p.cfg.VHost)
}

// connect requires p.mu.
func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.dsn())
	if err != nil {
		return fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		p.cfg.Exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	p.conn = conn
	p.channel = ch

	zap.L().Info("Connected to RabbitMQ",
		zap.String("host", p.cfg.Host),
		zap.String("exchange", p.cfg.Exchange))
	return nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event models.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		p.closeLocked()
		if err := p.connect(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(ctx,
		p.cfg.Exchange,
		event.EventType,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.New().String(),
			Timestamp:    event.Timestamp,
			Type:         event.EventType,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.EventType, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *AMQPPublisher) closeLocked() error {
	var err error
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	return err
}
