package withdrawal

import "errors"

var (
	ErrNotFound = errors.New("withdrawal not found")

	// ErrAlreadySettled is returned when completing or failing a final withdrawal
	ErrAlreadySettled = errors.New("withdrawal already settled")

	ErrInvalidPixKey = errors.New("invalid pix key")
)
