package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function;
// the worker uses them to decide between skipping a group and retrying a delivery.
var (
	ErrNotFound      = errors.New("not found")
	ErrConfigMissing = errors.New("destination setting not found")
	ErrSecretMissing = errors.New("destination setting has no webhook secret")
	ErrUnknownMode   = errors.New("unknown destination mode: must be app or webhook")
	ErrInvalidID     = errors.New("destination id must not be empty")
	ErrEmptyPayload  = errors.New("webhook payload must not be empty")
	ErrPayloadTooBig = errors.New("webhook payload exceeds 1 MiB")
	ErrNoTargets     = errors.New("destination has no chat targets configured")
	ErrQueueFull     = errors.New("queue is at capacity, try again later")
	ErrQueueNotFound = errors.New("no queue registered for mode")
)
