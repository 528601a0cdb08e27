package events

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/loyaltycore/campaigns-api/platform/go/validation"
)

// Publisher pushes ingestion events to a topic exchange. Undeliverable
// messages land on the dead-letter counterpart of the exchange.
type Publisher struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	exchange  string
	validator *validation.SchemaValidator
	logger    *zap.Logger
}

// NewPublisher dials the broker and declares the exchange topology.
func NewPublisher(url, exchange string, logger *zap.Logger) (*Publisher, error) {
	if url == "" {
		return nil, errors.New("broker url is required")
	}
	if exchange == "" {
		return nil, errors.New("exchange name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close() // nolint:errcheck
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(channel, exchange); err != nil {
		channel.Close() // nolint:errcheck
		conn.Close()    // nolint:errcheck
		return nil, err
	}

	return &Publisher{
		conn:      conn,
		channel:   channel,
		exchange:  exchange,
		validator: validation.NewSchemaValidator(),
		logger:    logger,
	}, nil
}

func declareTopology(channel *amqp.Channel, exchange string) error {
	if err := channel.ExchangeDeclare(exchange+".dlx", "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead letter exchange: %w", err)
	}
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, amqp.Table{
		"alternate-exchange": exchange + ".dlx",
	}); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

// PublishChallengeIngested validates and publishes the envelope, routed by
// event type.
func (p *Publisher) PublishChallengeIngested(ctx context.Context, msg Message) error {
	body, err := msg.Encode(p.validator)
	if err != nil {
		return err
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, msg.EventType, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.EventType, err)
	}

	p.logger.Debug("published ingestion event",
		zap.String("event_type", msg.EventType),
		zap.String("challenge_id", msg.ChallengeID.String()),
	)

	return nil
}

// Close tears down the channel and connection.
func (p *Publisher) Close() error {
	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
