// Package skillerr classifies failures so callers can decide whether to
// retry, ask for an override, or report and move on.
package skillerr

import (
	"errors"
	"fmt"
)

// Kind is the failure class of an error.
type Kind int

const (
	// KindUnknown is returned by KindOf for errors that carry no Kind.
	KindUnknown Kind = iota
	// KindNotFound means the requested skill or entry is absent.
	KindNotFound
	// KindConflict means an invariant blocks the operation unless overridden.
	KindConflict
	// KindSourceInvalid means an install source string could not be parsed.
	KindSourceInvalid
	// KindProviderFailure means a single discovery provider failed.
	KindProviderFailure
	// KindCorrupt means a persisted document could not be read or parsed.
	KindCorrupt
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindSourceInvalid:
		return "source_invalid"
	case KindProviderFailure:
		return "provider_failure"
	case KindCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// Error carries a Kind and a stable code (e.g. INS_HAS_DEPENDENTS) through
// the call stack. It supports errors.Is and errors.As via Unwrap.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Code + ": " + e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with a formatted message.
func New(kind Kind, code, format string, args ...any) error {
	return &Error{Kind: kind, Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and code to err. If err is nil, Wrap returns nil.
func Wrap(err error, kind Kind, code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Code: code, Msg: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err has the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// CodeOf returns the code of the first *Error in the chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
