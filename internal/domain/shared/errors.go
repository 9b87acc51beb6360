package shared

import "errors"

// Error kinds shared by every settlement operation. Entity packages expose typed
// errors carrying ids whose Is method matches one of these, so callers can branch
// with errors.Is without knowing the concrete type.
var (
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("actor is not allowed to perform this operation")
	ErrInvalidState         = errors.New("operation not allowed in current state")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrInvalidInput         = errors.New("invalid input")
	ErrDuplicateRequest     = errors.New("request already processed")
)
