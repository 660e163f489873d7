// Package github validates and decodes GitHub webhook deliveries.
package github

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/notifyhub/github-relay/internal/domain"
)

const (
	HeaderEvent     = "X-GitHub-Event"
	HeaderDelivery  = "X-GitHub-Delivery"
	HeaderSignature = "X-Hub-Signature-256"

	signaturePrefix = "sha256="
)

var (
	ErrSignatureMissing    = errors.New("github: X-Hub-Signature-256 header is required")
	ErrSignatureMismatch   = errors.New("github: signature verification failed")
	ErrEventMissing        = errors.New("github: X-GitHub-Event header is required")
	ErrInstallationMissing = errors.New("github: app delivery has no installation")
)

// Event is one decoded webhook delivery.
type Event struct {
	DeliveryID string
	Name       string
	Action     string
	Payload    *Payload
	Raw        json.RawMessage
}

// FullName returns "name.action", or just the name for action-less events.
func (e Event) FullName() string {
	if e.Action == "" {
		return e.Name
	}
	return e.Name + "." + e.Action
}

// Handler is invoked for every event a receiver accepts.
type Handler func(ctx context.Context, evt Event) error

// Receiver validates deliveries for one destination. It is immutable after
// construction and safe for concurrent use.
type Receiver struct {
	secret []byte
	mode   domain.Mode
}

// NewReceiver builds a receiver bound to secret. Mode app expects deliveries
// from a GitHub App installation; mode webhook accepts plain hook deliveries.
func NewReceiver(secret string, mode domain.Mode) (*Receiver, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMode, mode)
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, domain.ErrSecretMissing
	}
	return &Receiver{secret: []byte(secret), mode: mode}, nil
}

func (r *Receiver) Mode() domain.Mode { return r.mode }

// Receive verifies the delivery signature, decodes the body and passes the
// event to handle. Any validation failure or handler error is returned.
func (r *Receiver) Receive(ctx context.Context, p domain.Payload, handle Handler) error {
	if err := r.verify(p); err != nil {
		return err
	}

	name := strings.TrimSpace(p.Header(HeaderEvent))
	if name == "" {
		return ErrEventMissing
	}

	var payload Payload
	if err := json.Unmarshal(p.Body, &payload); err != nil {
		return fmt.Errorf("github: decode %s payload: %w", name, err)
	}

	if r.mode == domain.ModeApp && name != "ping" && payload.Installation == nil {
		return ErrInstallationMissing
	}

	return handle(ctx, Event{
		DeliveryID: p.Header(HeaderDelivery),
		Name:       name,
		Action:     payload.Action,
		Payload:    &payload,
		Raw:        json.RawMessage(p.Body),
	})
}

func (r *Receiver) verify(p domain.Payload) error {
	header := strings.TrimSpace(p.Header(HeaderSignature))
	if header == "" {
		return ErrSignatureMissing
	}
	signature := strings.TrimSpace(strings.TrimPrefix(header, signaturePrefix))
	decoded, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("github: decode signature: %w", err)
	}

	if subtle.ConstantTimeCompare(decoded, Sign(r.secret, p.Body)) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}

// Sign returns the HMAC-SHA256 of body keyed by secret.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}

// SignatureHeader formats body's signature the way GitHub sends it.
func SignatureHeader(secret string, body []byte) string {
	return signaturePrefix + hex.EncodeToString(Sign([]byte(secret), body))
}
