package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/SherClockHolmes/webpush-go"
)

var (
	ErrEmptyDescriptor = errors.New("empty endpoint descriptor")
	ErrMissingEndpoint = errors.New("endpoint url is required")
	ErrMissingKeys     = errors.New("p256dh and auth keys are required")
)

// Endpoint decodes a browser PushSubscription descriptor
// ({"endpoint": "...", "keys": {"p256dh": "...", "auth": "..."}}) and validates it.
func Endpoint(raw []byte) (*webpush.Subscription, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrEmptyDescriptor
	}

	var sub webpush.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("malformed endpoint descriptor: %w", err)
	}

	sub.Endpoint = strings.TrimSpace(sub.Endpoint)
	if sub.Endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	u, err := url.Parse(sub.Endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, fmt.Errorf("invalid endpoint url %q", sub.Endpoint)
	}

	if sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return nil, ErrMissingKeys
	}
	return &sub, nil
}

// NormalizeEndpoint validates raw and re-encodes it in compact canonical form for storage.
// Fields the browser sends besides endpoint and keys (e.g. expirationTime) are dropped.
func NormalizeEndpoint(raw []byte) (string, error) {
	sub, err := Endpoint(raw)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(sub)
	if err != nil {
		return "", fmt.Errorf("failed to encode endpoint descriptor: %w", err)
	}
	return string(encoded), nil
}
