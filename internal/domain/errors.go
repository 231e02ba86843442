package domain

import "errors"

type ErrorKind string

const (
	KindInvalidPattern  ErrorKind = "invalid_pattern"
	KindInvalidDuration ErrorKind = "invalid_duration"
	KindInvalidRange    ErrorKind = "invalid_range"
	KindInvalidArgument ErrorKind = "invalid_argument"
)

// ValidationError is returned for caller mistakes. Kind is stable; Message is for humans.
type ValidationError struct {
	Kind    ErrorKind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(kind ErrorKind, message string) error {
	return &ValidationError{Kind: kind, Message: message}
}

// IsValidation reports whether err is a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
