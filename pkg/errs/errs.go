package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an outcome of an authorization, validation, or
// storage operation. Expected denials are returned as values of this
// taxonomy rather than raised as opaque faults.
type Kind int

const (
	// KindUnauthorized means no valid, active user could be resolved.
	KindUnauthorized Kind = iota
	// KindForbidden means the user is known but lacks the capability,
	// scope, or the resource is in a state that blocks the action.
	KindForbidden
	// KindNotFound means a resource id did not resolve.
	KindNotFound
	// KindValidation means the input was malformed (e.g. a revert
	// reason that is too short).
	KindValidation
	// KindPrecondition means a state guard was unmet (e.g. completing
	// a report with zero grade entries).
	KindPrecondition
	// KindInvalidTransition means the lifecycle state machine has no
	// edge from the current status for the requested operation.
	KindInvalidTransition
	// KindConflict means an optimistic write detected a lost update.
	KindConflict
	// KindTransientStore means the underlying store was unreachable or
	// timed out. This is the only kind that represents a raised fault
	// rather than a decided outcome.
	KindTransientStore
)

// String returns the canonical name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition_failed"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindConflict:
		return "conflict"
	case KindTransientStore:
		return "transient_store"
	default:
		return "unknown"
	}
}

// Error carries a classified outcome with a human-readable message
// suitable for rendering to the caller as-is.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Unauthorized returns an error indicating no valid active user.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Forbidden returns an error indicating a missing capability, scope,
// or a blocking resource state.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NotFound returns an error indicating an unresolved resource id.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Validation returns an error indicating malformed input.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Precondition returns an error indicating an unmet state guard.
func Precondition(message string) *Error {
	return &Error{Kind: KindPrecondition, Message: message}
}

// InvalidTransition returns an error indicating the state machine has
// no edge for the requested operation.
func InvalidTransition(message string) *Error {
	return &Error{Kind: KindInvalidTransition, Message: message}
}

// Conflict returns an error indicating a lost update detected by an
// optimistic concurrency check.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// TransientStore wraps a store fault so it can propagate to the caller
// while remaining distinguishable from decided outcomes.
func TransientStore(message string, cause error) *Error {
	return &Error{Kind: KindTransientStore, Message: message, cause: cause}
}

// KindOf returns the kind of err when it belongs to this taxonomy.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err belongs to the taxonomy with kind k.
func IsKind(err error, k Kind) bool {
	kind, ok := KindOf(err)
	return ok && kind == k
}

// Reason returns the caller-facing message for err. For errors outside
// the taxonomy it falls back to err.Error().
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
