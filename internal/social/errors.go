// Package social implements the friendship graph: the friend-request
// lifecycle, symmetric friendship edges, the top-friends ranking and karma
// maintenance. Handlers call into this package and map its errors onto
// HTTP statuses.
package social

import "errors"

var (
	// ErrNotFound is returned when a referenced agent or request does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller is not the addressee of a request.
	ErrForbidden = errors.New("forbidden")

	// ErrSelfReference is returned for operations an agent directs at itself.
	ErrSelfReference = errors.New("cannot befriend yourself")

	// ErrAlreadyFriends is returned when a friendship already covers the pair.
	ErrAlreadyFriends = errors.New("already friends")

	// ErrDuplicateRequest is returned when a pending request already exists
	// between the pair, in either direction.
	ErrDuplicateRequest = errors.New("friend request already pending")

	// ErrNotFriends is returned when an operation requires an existing
	// friendship that is not there.
	ErrNotFriends = errors.New("not friends")

	// ErrValidation wraps structurally invalid input, e.g. a bad top-friend
	// position.
	ErrValidation = errors.New("validation failed")
)
