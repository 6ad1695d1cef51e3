package targetsync

import (
	"errors"
	"fmt"
)

// EmptyInputMessage is shown on the DSL field when it is blank at submit time.
const EmptyInputMessage = "Condition target DSL cannot be empty."

var (
	// ErrEmptyInput marks a blank condition target DSL at persist time.
	ErrEmptyInput = errors.New("targetsync: condition target dsl is empty")
	// ErrInvalidDSL marks a condition target DSL rejected by the parser.
	ErrInvalidDSL = errors.New("targetsync: condition target dsl is invalid")
	// ErrInvalidStoredDefinition marks a stored target definition that can no longer be parsed.
	ErrInvalidStoredDefinition = errors.New("targetsync: stored target definition is invalid")
)

// ValidationError is a user-correctable error attached to a single form field.
type ValidationError struct {
	Field   string
	Message string

	kind  error
	cause error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap exposes the error kind and, for parser failures, the parser error.
func (e *ValidationError) Unwrap() []error {
	if e == nil {
		return nil
	}
	var errs []error
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// Fields returns the error as a field → message map for form rendering.
func (e *ValidationError) Fields() map[string]string {
	if e == nil {
		return nil
	}
	return map[string]string{e.Field: e.Message}
}

func emptyInputError() *ValidationError {
	return &ValidationError{
		Field:   FieldConditionTargetDSL,
		Message: EmptyInputMessage,
		kind:    ErrEmptyInput,
	}
}

func invalidDSLError(cause error) *ValidationError {
	return &ValidationError{
		Field:   FieldConditionTargetDSL,
		Message: cause.Error(),
		kind:    ErrInvalidDSL,
		cause:   cause,
	}
}

// StoredDefinitionError reports a stored definition that failed to parse while hydrating.
type StoredDefinitionError struct {
	Source Source
	Err    error
}

// Error implements the error interface.
func (e *StoredDefinitionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("targetsync: stored target definition at %s is invalid: %v", e.Source, e.Err)
}

// Unwrap exposes ErrInvalidStoredDefinition and the parser error.
func (e *StoredDefinitionError) Unwrap() []error {
	if e == nil {
		return nil
	}
	return []error{ErrInvalidStoredDefinition, e.Err}
}
