// Package errs defines the error taxonomy shared by every governance
// component (spec §7). Each component returns a *Error of the
// appropriate Kind for expected conditions; panics are reserved for
// invariant violations such as ledger hash self-inconsistency.
package errs

import "fmt"

// Kind classifies an error the way spec.md §7 names it.
type Kind string

const (
	// KindValidation covers malformed input: bad ID patterns, out-of-range
	// fields, oversized context. Surfaced as a 4xx-shaped error upstream.
	KindValidation Kind = "validation_error"
	// KindAuthorizationDenied covers an actor attempting an action it is
	// not authorized to perform (e.g. a non-executive emergency bypass).
	KindAuthorizationDenied Kind = "authorization_denied"
	// KindConflict covers a state collision: a second risk assessment for
	// a decision, signing an already-signed artifact.
	KindConflict Kind = "conflict_error"
	// KindIntegrity covers a detected tamper/hash-mismatch condition.
	// Reported in a result value, never raised as a call failure.
	KindIntegrity Kind = "integrity_error"
	// KindPersistence covers a durable-store failure. Fatal for the
	// request that triggered it.
	KindPersistence Kind = "persistence_error"
	// KindSigning covers signing-key unavailability. The caller still
	// receives a result; the result is marked unsigned.
	KindSigning Kind = "signing_failure"
	// KindNotFound covers an unknown escalation/artifact/decision/override id.
	KindNotFound Kind = "not_found"
	// KindSLAExpired marks an escalation state transition caused by SLA
	// timeout. Not raised to callers as a failure — it describes a
	// completed, valid state transition.
	KindSLAExpired Kind = "sla_expired"
)

// Error is the structured error type returned by every governance
// component for an expected failure condition.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, errs.New(errs.KindNotFound, "")) style checks
// via the Kind-only sentinels below, or errors.As for the full value.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error wrapping an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Sentinel Kind-only values for use with errors.Is.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrAuthorizationDenied = &Error{Kind: KindAuthorizationDenied}
	ErrConflict            = &Error{Kind: KindConflict}
	ErrIntegrity           = &Error{Kind: KindIntegrity}
	ErrPersistence         = &Error{Kind: KindPersistence}
	ErrSigning             = &Error{Kind: KindSigning}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrSLAExpired          = &Error{Kind: KindSLAExpired}
)

// KindOf returns the Kind of err if it is (or wraps) an *Error, and
// false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if as(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// as walks err's Unwrap chain by hand, so this file needs no import of
// the "errors" package.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
