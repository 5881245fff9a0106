package booking

import "errors"

var (
	ErrUnknownField = errors.New("unknown booking field")
	ErrInFlight     = errors.New("booking submission already in flight")
	ErrDispatch     = errors.New("booking dispatch failed")
)

// ValidationError is a user-correctable problem with the draft.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
