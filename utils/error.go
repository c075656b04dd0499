package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError carries the human-readable reason for a rejected
// create/update. It is surfaced before any persistence happens and is
// mapped to a client error at the API boundary.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func NewValidationError(reason string) error {
	return &ValidationError{Reason: reason}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
