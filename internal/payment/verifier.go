package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76/webhook"
)

// SignatureHeader is the header the provider signs notifications with.
const SignatureHeader = "Stripe-Signature"

var (
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrMalformedPayload = errors.New("malformed payload")
)

// Event is an authenticated notification. Data stays opaque to this package.
type Event struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
	Verified bool            `json:"-"`
}

type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier fixes the mode for the life of the process. An empty secret
// selects trusted-fallback mode: payloads are accepted without any
// signature check. Never run that way in production.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret, tolerance: webhook.DefaultTolerance}
}

// Trusted reports whether the verifier is in trusted-fallback mode.
func (v *Verifier) Trusted() bool {
	return v.secret == ""
}

// Verify authenticates payload against the Stripe-Signature header.
// It has no side effects, so redelivered notifications verify the same way.
func (v *Verifier) Verify(payload []byte, header string) (*Event, error) {
	if v.Trusted() {
		return parseTrusted(payload)
	}

	ev, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type), Verified: true}
	if ev.Data != nil {
		out.Data = ev.Data.Raw
	}
	return out, nil
}

// parseTrusted mirrors the signed path: Data carries data.object.
func parseTrusted(payload []byte) (*Event, error) {
	var env struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &Event{ID: env.ID, Type: env.Type, Data: env.Data.Object}, nil
}
