// cmd/worker/main.go
//
// Delivery-report worker: consumes per-recipient delivery events published
// by the engine and forwards them to the configured operator webhook.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"

	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/config"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/events"
)

const maxRetries = 3

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, relying on OS environment variables")
	}
	cfg := config.Load()
	if cfg.AMQPURL == "" {
		log.Fatal().Msg("AMQP_URL must be set")
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open a channel")
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		events.QueueName, // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to declare queue")
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register consumer")
	}

	client := &http.Client{Timeout: 10 * time.Second}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var ev events.DeliveryEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				log.Warn().Err(err).Msg("invalid delivery event, dropping")
				d.Ack(false)
				continue
			}

			if err := forward(client, cfg.WebhookURL, d.Body); err != nil {
				log.Warn().Err(err).
					Str("campaign_id", ev.CampaignID.String()).
					Msg("failed to forward delivery report")

				var retryCount int
				if v, ok := d.Headers["x-retry-count"]; ok {
					if n, ok := v.(int32); ok {
						retryCount = int(n)
					}
				}
				if retryCount < maxRetries {
					d.Nack(false, true) // requeue
					continue
				}
			}

			d.Ack(false)
		}
	}()

	log.Info().Msg("delivery-report worker running, waiting for events...")
	<-forever
}

func forward(client *http.Client, webhookURL string, body []byte) error {
	if webhookURL == "" {
		// No webhook configured; events are consumed and only logged.
		var ev events.DeliveryEvent
		if err := json.Unmarshal(body, &ev); err == nil {
			log.Info().
				Str("campaign_id", ev.CampaignID.String()).
				Str("destination", ev.Destination).
				Str("status", ev.Status).
				Msg("delivery event")
		}
		return nil
	}

	req, err := http.NewRequest(http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
