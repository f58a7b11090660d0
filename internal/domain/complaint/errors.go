package complaint

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("complaint not found")

	// ErrAlreadyOpen is the sentinel matched by AlreadyOpenError
	ErrAlreadyOpen = errors.New("an open complaint already exists for this group")

	// ErrAlreadyResolved is returned when acting on a terminal complaint
	ErrAlreadyResolved = errors.New("complaint already resolved or closed")

	// ErrInvalidDeadline is returned when extending to a past deadline
	ErrInvalidDeadline = errors.New("new deadline must be in the future")

	// ErrNotParticipant is returned when the complainant has no membership in the group
	ErrNotParticipant = errors.New("user is not a participant of this group")

	// ErrNotParty is returned when the author is neither complainant nor respondent
	ErrNotParty = errors.New("author is not a party to this complaint")

	// ErrNoRefundablePayment is returned when no unreversed group payment exists
	ErrNoRefundablePayment = errors.New("no refundable group payment found")

	// ErrEmptyMessage is returned when a response carries no text
	ErrEmptyMessage = errors.New("message must not be empty")
)

// AlreadyOpenError carries the id of the existing open complaint so callers
// can route to it instead of creating a duplicate.
type AlreadyOpenError struct {
	ExistingID uuid.UUID
}

func (e *AlreadyOpenError) Error() string {
	return ErrAlreadyOpen.Error()
}

func (e *AlreadyOpenError) Is(target error) bool {
	return target == ErrAlreadyOpen
}
