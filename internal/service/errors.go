package service

// ValidationError marks a request payload rejected before any store access.
// Handlers map it to a 400 instead of the generic 500.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}
