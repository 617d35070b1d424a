package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks rejected user input; match with errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated indicates the request has no logged-in session.
	ErrUnauthenticated = errors.New("not logged in")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// ValidationError describes bad user input. Message is shown to the operator
// as is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Unwrap exposes the cause, if any.
func (e *ValidationError) Unwrap() error { return e.Err }

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError with a fixed message.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InvalidErr wraps a domain error (for example a money bound) as a
// ValidationError on field.
func InvalidErr(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error(), Err: err}
}

// UserSafeMessage returns text suitable for the operator's screen.
func UserSafeMessage(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, ErrNotFound):
		return "record not found"
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredentials):
		return err.Error()
	case errors.Is(err, ErrIdempotencyConflict):
		return "this request was already submitted"
	default:
		return "something went wrong, please try again"
	}
}
