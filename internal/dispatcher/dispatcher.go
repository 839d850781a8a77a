// Package dispatcher hides the outbound channel's wire format behind a
// single send operation. The engine only sees success or failure; it does not
// distinguish a timeout from an invalid destination.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/model"
)

// Payload is one message to one destination: plain text, or a media
// reference (image/audio/video) carrying a URL with an optional caption.
type Payload struct {
	Kind     string
	Text     string
	MediaURL string
}

// Credentials identify the tenant's channel instance at the gateway.
type Credentials struct {
	InstanceID string
	APIToken   string
}

type Sender interface {
	Send(ctx context.Context, creds Credentials, destination string, p Payload) error
}

// GatewayClient talks to the WhatsApp gateway's HTTP API, one route per
// payload kind. Every call carries a short timeout so a hung gateway cannot
// stall a whole tick.
type GatewayClient struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
	Log     zerolog.Logger
}

func NewGatewayClient(baseURL string, timeout time.Duration, log zerolog.Logger) *GatewayClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GatewayClient{
		BaseURL: baseURL,
		Timeout: timeout,
		Client:  &http.Client{Timeout: timeout},
		Log:     log,
	}
}

func (g *GatewayClient) Send(ctx context.Context, creds Credentials, destination string, p Payload) error {
	route, body, err := buildRequest(destination, p)
	if err != nil {
		return err
	}

	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/message/%s/%s", g.BaseURL, route, creds.InstanceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", creds.APIToken)

	resp, err := g.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		g.Log.Warn().
			Str("destination", destination).
			Int("status", resp.StatusCode).
			Msg("gateway rejected send")
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, snippet)
	}
	return nil
}

func buildRequest(destination string, p Payload) (route string, body map[string]any, err error) {
	switch p.Kind {
	case model.KindText:
		return "sendText", map[string]any{
			"number": destination,
			"text":   p.Text,
		}, nil
	case model.KindImage, model.KindVideo:
		return "sendMedia", map[string]any{
			"number":    destination,
			"mediatype": p.Kind,
			"media":     p.MediaURL,
			"caption":   p.Text,
		}, nil
	case model.KindAudio:
		return "sendWhatsAppAudio", map[string]any{
			"number": destination,
			"audio":  p.MediaURL,
		}, nil
	}
	return "", nil, fmt.Errorf("unsupported message kind %q", p.Kind)
}

var _ Sender = (*GatewayClient)(nil)
