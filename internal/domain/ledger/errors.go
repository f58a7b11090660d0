package ledger

import "errors"

var (
	// ErrInvalidAmount is returned when amount is <= 0
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrInsufficientFunds is returned when a debit would make the balance negative
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrTransactionNotFound is returned when the referenced ledger entry does not exist
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrAlreadyReversed is returned when a transaction already has a compensating entry
	ErrAlreadyReversed = errors.New("transaction already reversed")

	// ErrAlreadySettled is returned when a pending entry was already completed or failed
	ErrAlreadySettled = errors.New("transaction already settled")

	// ErrNotReversible is returned when reversing a non-completed entry
	ErrNotReversible = errors.New("only completed transactions can be reversed")

	ErrDuplicateExternalID = errors.New("external payment id already recorded")
)
