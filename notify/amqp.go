/*
amqp.go - RabbitMQ-backed notice publisher

PURPOSE:
  Publishes dunning notices to a durable topic exchange instead of sending
  them directly. A downstream delivery worker (email service, SMS bridge)
  consumes the queue; this process only guarantees the notice reached the
  broker. The exchange is a topic exchange so deployments can bind
  selectively if they extend RoutingKey with a severity suffix.
*/
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/rabbitmq/amqp091-go"

	"github.com/brownstone/rent-engine/engine"
)

const noticeExchange = "rent.notices"

// AMQPSender publishes notices to a RabbitMQ topic exchange.
type AMQPSender struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel

	// RoutingKey to publish under; defaults to "dunning.notice".
	RoutingKey string
}

// NewAMQPSender connects to the broker and declares the notice exchange.
func NewAMQPSender(amqpURL string) (*AMQPSender, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.Dial(cleanURL)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	err = channel.ExchangeDeclare(
		noticeExchange, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPSender{conn: conn, channel: channel, RoutingKey: "dunning.notice"}, nil
}

// Send publishes the notice as JSON. Returning an error here surfaces as a
// non-fatal DispatchErr on the dunning result.
func (s *AMQPSender) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(Notice{To: to, Subject: subject, Body: body})
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(ctx,
		noticeExchange,
		s.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        payload,
		})
}

// Close gracefully closes the channel and connection.
func (s *AMQPSender) Close() {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

var _ engine.NoticeSender = (*AMQPSender)(nil)
