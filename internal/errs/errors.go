package errs

import "errors"

// Error kinds. Concrete errors wrap one of these so callers can classify
// them with errors.Is.
var (
	// ErrValidation indicates malformed input: category, status, argument.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates that a report or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPermission indicates the actor's role does not allow the operation.
	ErrPermission = errors.New("permission denied")
	// ErrDelivery indicates a transport failure for a single recipient.
	ErrDelivery = errors.New("delivery failed")
	// ErrPersistence indicates a store failure that aborted the operation.
	ErrPersistence = errors.New("persistence failure")
)
