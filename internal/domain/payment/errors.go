package payment

import "errors"

var (
	// ErrInvalidSignature is returned when the webhook HMAC does not match
	ErrInvalidSignature = errors.New("webhook signature mismatch")

	// ErrUnknownStatus is returned for a status the gateway contract does not define
	ErrUnknownStatus = errors.New("unknown gateway status")

	// ErrMissingExternalID is returned when the notification carries no payment id
	ErrMissingExternalID = errors.New("external payment id is required")
)
