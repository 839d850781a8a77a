// Package events publishes per-recipient delivery outcomes to RabbitMQ for
// downstream consumers (delivery reports, dashboards). Publishing is
// fire-and-forget: a broker outage is logged and never affects a tick.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

const QueueName = "campaign_events"

type DeliveryEvent struct {
	CampaignID  uuid.UUID `json:"campaign_id"`
	TenantID    string    `json:"tenant_id"`
	Destination string    `json:"destination"`
	Position    int       `json:"position"`
	Status      string    `json:"status"` // sent | failed
	Error       string    `json:"error,omitempty"`
	At          time.Time `json:"at"`
}

type Publisher interface {
	PublishDelivery(ev DeliveryEvent) error
}

// AMQPPublisher publishes delivery events to a durable queue.
type AMQPPublisher struct {
	ch  *amqp.Channel
	log zerolog.Logger
}

func NewAMQPPublisher(conn *amqp.Connection, log zerolog.Logger) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	_, err = ch.QueueDeclare(
		QueueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return nil, err
	}

	return &AMQPPublisher{ch: ch, log: log}, nil
}

func (p *AMQPPublisher) PublishDelivery(ev DeliveryEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	err = p.ch.Publish(
		"",        // exchange
		QueueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		p.log.Error().Err(err).Str("campaign_id", ev.CampaignID.String()).Msg("failed to publish delivery event")
	}
	return err
}

func (p *AMQPPublisher) Close() error {
	return p.ch.Close()
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishDelivery(DeliveryEvent) error { return nil }

var (
	_ Publisher = (*AMQPPublisher)(nil)
	_ Publisher = NoopPublisher{}
)
