package notification

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"learning-planner-backend/config"
)

// mockSender is a mock implementation of the Sender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
	calls    int
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(_ context.Context, payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	m.calls++
	return m.SendFunc(payload, sub, options)
}

func response(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}
}

const testEndpoint = `{"endpoint":"https://example.com/push","keys":{"p256dh":"test_p256dh","auth":"test_auth"}}`

func newTestTransport(t *testing.T, sender Sender) *WebPushTransport {
	transport := NewWebPushTransport(config.PushConfig{
		PublicKey:  "public",
		PrivateKey: "private",
		Subject:    "mailto:admin@example.com",
		TTL:        60,
	}, zaptest.NewLogger(t))
	transport.sender = sender
	return transport
}

func TestWebPushTransport_Send(t *testing.T) {
	t.Run("accepted notification", func(t *testing.T) {
		sender := &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				assert.Equal(t, "https://example.com/push", sub.Endpoint)
				assert.Equal(t, "test_p256dh", sub.Keys.P256dh)
				assert.Equal(t, "test_auth", sub.Keys.Auth)
				assert.JSONEq(t, `{"title":"Task reminder","message":"Task 'Essay' is due by 01.01.2024 10:00"}`, string(payload))
				assert.Equal(t, webpush.UrgencyHigh, options.Urgency)
				assert.Equal(t, "public", options.VAPIDPublicKey)
				assert.Equal(t, 60, options.TTL)
				return response(http.StatusCreated), nil
			},
		}
		transport := newTestTransport(t, sender)

		err := transport.Send(context.Background(), testEndpoint, Message{
			Title:   "Task reminder",
			Body:    "Task 'Essay' is due by 01.01.2024 10:00",
			Urgency: webpush.UrgencyHigh,
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, sender.calls)
	})

	t.Run("expired subscription", func(t *testing.T) {
		sender := &mockSender{
			SendFunc: func([]byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
				return response(http.StatusGone), nil
			},
		}
		err := newTestTransport(t, sender).Send(context.Background(), testEndpoint, Message{})

		var deliveryErr *DeliveryError
		require.ErrorAs(t, err, &deliveryErr)
		assert.Equal(t, http.StatusGone, deliveryErr.StatusCode)
	})

	t.Run("network failure", func(t *testing.T) {
		sender := &mockSender{
			SendFunc: func([]byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
				return nil, errors.New("dial tcp: connection refused")
			},
		}
		err := newTestTransport(t, sender).Send(context.Background(), testEndpoint, Message{})

		var deliveryErr *DeliveryError
		require.ErrorAs(t, err, &deliveryErr)
		assert.Zero(t, deliveryErr.StatusCode)
	})

	t.Run("unusable descriptor never reaches the push service", func(t *testing.T) {
		sender := &mockSender{
			SendFunc: func([]byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
				t.Fatal("sender must not be called")
				return nil, nil
			},
		}
		err := newTestTransport(t, sender).Send(context.Background(), `{"endpoint":""}`, Message{})

		var deliveryErr *DeliveryError
		assert.ErrorAs(t, err, &deliveryErr)
		assert.Zero(t, sender.calls)
	})
}
