package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"learning-planner-backend/config"
	"learning-planner-backend/internal/parse"
)

// Message is one notification addressed to every device of a user.
type Message struct {
	Title   string
	Body    string
	Urgency webpush.Urgency
}

// payload is what the service worker receives; it reads data.title and data.message.
type payload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Payload encodes the message for the push service.
func (m Message) Payload() ([]byte, error) {
	return json.Marshal(payload{Title: m.Title, Message: m.Body})
}

// Transport performs a single delivery attempt to one endpoint.
// A nil error means the push service accepted the message.
type Transport interface {
	Send(ctx context.Context, endpoint string, msg Message) error
}

// DeliveryError describes a rejected or failed delivery attempt.
// StatusCode is zero when no response was received.
type DeliveryError struct {
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("push delivery failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("push delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(ctx context.Context, payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real Sender backed by the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(ctx context.Context, payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotificationWithContext(ctx, payload, sub, options)
}

// WebPushTransport delivers messages over the Web Push protocol with VAPID authentication.
type WebPushTransport struct {
	options webpush.Options
	sender  Sender
}

// NewWebPushTransport creates a transport from the push configuration.
func NewWebPushTransport(cfg config.PushConfig, log *zap.Logger) *WebPushTransport {
	transport := &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warn("invalid push proxy url, sending directly", zap.String("proxy", cfg.HTTPProxy), zap.Error(err))
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &WebPushTransport{
		options: webpush.Options{
			HTTPClient: &http.Client{
				Transport: transport,
				Timeout:   cfg.Timeout,
			},
			VAPIDPublicKey:  cfg.PublicKey,
			VAPIDPrivateKey: cfg.PrivateKey,
			Subscriber:      cfg.Subject,
			TTL:             cfg.TTL,
		},
		sender: &WebPushSender{},
	}
}

// Send encrypts and posts msg to the endpoint. Any transport error or non-2xx response
// is reported as a *DeliveryError.
func (t *WebPushTransport) Send(ctx context.Context, endpoint string, msg Message) error {
	sub, err := parse.Endpoint([]byte(endpoint))
	if err != nil {
		return &DeliveryError{Err: err}
	}

	body, err := msg.Payload()
	if err != nil {
		return &DeliveryError{Err: err}
	}

	options := t.options
	options.Urgency = msg.Urgency

	resp, err := t.sender.Send(ctx, body, sub, &options)
	if err != nil {
		return &DeliveryError{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DeliveryError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("push service responded %q", http.StatusText(resp.StatusCode)),
		}
	}
	return nil
}
