// Package pipelineerr implements the error taxonomy of spec.md §7 as a
// single Go type with an enum Kind field, in the shape of the teacher's
// database.DatabaseError/DBErrorType pairing.
package pipelineerr

import (
	"errors"
	"fmt"
)

//go:generate stringer -type=Kind
type Kind int

const (
	// InvalidInput covers malformed handler parameters or an input path
	// that cannot be resolved to any file at all.
	InvalidInput Kind = iota

	// ResolveFailure covers archive corruption, manifest parse failure, or
	// a path-traversal attempt rejected by the resolver.
	ResolveFailure

	// CheckFailure covers a file failing its assigned check strategy.
	CheckFailure

	// HandlerHookError covers a panic or error returned from a handler's
	// Preprocess/Process/Postprocess capability hook.
	HandlerHookError

	// SinkTransient covers a storage or catalog write that failed in a way
	// judged retriable (network timeout, 5xx, connection reset).
	SinkTransient

	// SinkPermanent covers a storage or catalog write that failed in a way
	// judged not retriable (authorization, not-found, malformed request).
	SinkPermanent

	// InvariantViolation covers internal contract breaches: re-entrant
	// Execute, a phase running out of order, an unreachable state.
	InvariantViolation
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case ResolveFailure:
		return "resolve_failure"
	case CheckFailure:
		return "check_failure"
	case HandlerHookError:
		return "handler_hook_error"
	case SinkTransient:
		return "sink_transient"
	case SinkPermanent:
		return "sink_permanent"
	case InvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// Error is the one exported error type of this package. It pairs a Kind
// with a message and an optional wrapped cause, mirroring the teacher's
// DatabaseError (errStr/errType fields, Error() formatting
// "DatabaseError[%s]: %s").
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

var _ error = (*Error)(nil)

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pipelineerr[%s]: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("pipelineerr[%s]: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidInput(format string, args ...interface{}) *Error {
	return newf(InvalidInput, format, args...)
}
func NewResolveFailure(format string, args ...interface{}) *Error {
	return newf(ResolveFailure, format, args...)
}
func NewCheckFailure(format string, args ...interface{}) *Error {
	return newf(CheckFailure, format, args...)
}
func NewHandlerHookError(format string, args ...interface{}) *Error {
	return newf(HandlerHookError, format, args...)
}
func NewSinkTransient(format string, args ...interface{}) *Error {
	return newf(SinkTransient, format, args...)
}
func NewSinkPermanent(format string, args ...interface{}) *Error {
	return newf(SinkPermanent, format, args...)
}
func NewInvariantViolation(format string, args ...interface{}) *Error {
	return newf(InvariantViolation, format, args...)
}

// wrap builds an Error of kind around an existing error, keeping its
// message for Unwrap/errors.Is/errors.As chains.
func wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: err.Error(), Cause: err}
}

func WrapInvalidInput(err error) *Error       { return wrap(InvalidInput, err) }
func WrapResolveFailure(err error) *Error     { return wrap(ResolveFailure, err) }
func WrapCheckFailure(err error) *Error       { return wrap(CheckFailure, err) }
func WrapHandlerHookError(err error) *Error   { return wrap(HandlerHookError, err) }
func WrapSinkTransient(err error) *Error      { return wrap(SinkTransient, err) }
func WrapSinkPermanent(err error) *Error      { return wrap(SinkPermanent, err) }
func WrapInvariantViolation(err error) *Error { return wrap(InvariantViolation, err) }

// Is reports whether err is a *Error of the given kind, unwrapping through
// any chain of wrapped errors to find it.
func Is(err error, kind Kind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

func (e *Error) IsTransient() bool          { return e != nil && e.Kind == SinkTransient }
func (e *Error) IsCheckFailure() bool       { return e != nil && e.Kind == CheckFailure }
func (e *Error) IsInvalidInput() bool       { return e != nil && e.Kind == InvalidInput }
func (e *Error) IsResolveFailure() bool     { return e != nil && e.Kind == ResolveFailure }
func (e *Error) IsHandlerHookError() bool   { return e != nil && e.Kind == HandlerHookError }
func (e *Error) IsSinkPermanent() bool      { return e != nil && e.Kind == SinkPermanent }
func (e *Error) IsInvariantViolation() bool { return e != nil && e.Kind == InvariantViolation }
