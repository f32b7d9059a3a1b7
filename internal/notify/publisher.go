// Package notify delivers account notifications.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xenking/storefront/internal/domain/account"
)

// MessageTypeActivation is the AMQP message type of activation requests.
const MessageTypeActivation = "account.activation"

var _ account.Notifier = (*Publisher)(nil)

// Publisher publishes activation requests to an AMQP exchange. A mail worker
// consuming the exchange performs the delivery.
type Publisher struct {
	conn       *amqp.Connection
	exchange   string
	routingKey string

	mu sync.Mutex
	ch *amqp.Channel
}

// NewPublisher connects to the broker and declares a durable topic exchange.
func NewPublisher(url, exchange, routingKey string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial amqp")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declare exchange %q", exchange)
	}
	return &Publisher{
		conn:       conn,
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
	}, nil
}

// SendActivation publishes a persistent JSON activation message.
func (p *Publisher) SendActivation(ctx context.Context, a account.Activation) error {
	msg, err := activationMessage(a, time.Now())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, msg); err != nil {
		return errors.Wrap(err, "publish activation")
	}
	return nil
}

// Check reports an error when the broker connection is gone.
func (p *Publisher) Check(context.Context) error {
	if p.conn.IsClosed() {
		return errors.New("amqp connection closed")
	}
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		_ = p.conn.Close()
		return errors.Wrap(err, "close channel")
	}
	if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return errors.Wrap(err, "close connection")
	}
	return nil
}

func activationMessage(a account.Activation, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return amqp.Publishing{}, errors.Wrap(err, "marshal activation")
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.New().String(),
		Type:         MessageTypeActivation,
		Timestamp:    now,
		Body:         body,
	}, nil
}
