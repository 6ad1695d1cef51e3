package repositories

import "fmt"

// Error is a RepositoryError for stores that do not carry backend status codes.
type Error struct {
	Op          string
	Message     string
	notFound    bool
	conflict    bool
	unavailable bool
}

var _ RepositoryError = (*Error)(nil)

// NewNotFoundError reports a missing record.
func NewNotFoundError(op, message string) *Error {
	return &Error{Op: op, Message: message, notFound: true}
}

// NewConflictError reports a write that collides with existing state.
func NewConflictError(op, message string) *Error {
	return &Error{Op: op, Message: message, conflict: true}
}

// NewUnavailableError reports a store that cannot serve requests.
func NewUnavailableError(op, message string) *Error {
	return &Error{Op: op, Message: message, unavailable: true}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) IsNotFound() bool    { return e != nil && e.notFound }
func (e *Error) IsConflict() bool    { return e != nil && e.conflict }
func (e *Error) IsUnavailable() bool { return e != nil && e.unavailable }
