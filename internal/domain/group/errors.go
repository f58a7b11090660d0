package group

import "errors"

var (
	ErrGroupNotFound      = errors.New("group not found")
	ErrMembershipNotFound = errors.New("membership not found")

	// ErrGroupNotJoinable is returned when the group is not active_with_slots
	ErrGroupNotJoinable = errors.New("group is not accepting members")

	// ErrGroupFull is returned when the capacity check fails inside the join lock
	ErrGroupFull = errors.New("group capacity exceeded")

	// ErrAlreadyMember is returned when the user already holds an active membership
	ErrAlreadyMember = errors.New("user is already an active member of this group")

	// ErrNotGroupAdmin is returned when the actor does not own the group
	ErrNotGroupAdmin = errors.New("actor is not the group administrator")

	// ErrPlatformApprovalRequired is returned when the owner releases before platform review
	ErrPlatformApprovalRequired = errors.New("platform approval required before owner release")

	// ErrGroupTerminated is returned on any transition attempted after termination
	ErrGroupTerminated = errors.New("group is terminated")

	ErrAlreadyCancelled = errors.New("membership already cancelled")
	ErrInvalidCapacity  = errors.New("max_members must be at least 2")
	ErrInvalidPrice     = errors.New("price_per_slot_cents must be greater than 0")
)
