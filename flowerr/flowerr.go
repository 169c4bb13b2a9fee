// Package flowerr classifies the ways a flow measurement can fail to produce a
// number. Callers distinguish the kinds with errors.Is against the exported
// sentinels.
package flowerr

import (
	"errors"
	"fmt"
)

// Kind is the category of a flow failure.
type Kind int

const (
	// KindUnavailable means an input the computation needs is missing or
	// incompatible: no phase series, no venc, no RR interval, a shape or pixel
	// spacing mismatch, too few time samples. It is an expected state, shown
	// to the user as a blank measure.
	KindUnavailable Kind = iota + 1

	// KindDegenerate means the arithmetic has no finite answer, e.g. a flat
	// flow curve makes a ratio divide by zero.
	KindDegenerate

	// KindInvariant means the caller broke a precondition, such as passing
	// time and flow series of different lengths.
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindDegenerate:
		return "degenerate"
	case KindInvariant:
		return "invariant violation"
	}

	return "unknown"
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrUnavailable = errors.New("not computable")
	ErrDegenerate  = errors.New("degenerate arithmetic")
	ErrInvariant   = errors.New("invariant violation")
)

// Error is a classified flow failure.
type Error struct {
	Kind   Kind
	Op     string
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	case ErrDegenerate:
		return e.Kind == KindDegenerate
	case ErrInvariant:
		return e.Kind == KindInvariant
	}

	return false
}

// Unavailable builds a KindUnavailable error for op.
func Unavailable(op, format string, args ...interface{}) error {
	return &Error{Kind: KindUnavailable, Op: op, Reason: fmt.Sprintf(format, args...)}
}

// UnavailableCause is Unavailable with an underlying cause attached.
func UnavailableCause(op string, cause error, format string, args ...interface{}) error {
	return &Error{Kind: KindUnavailable, Op: op, Reason: fmt.Sprintf(format, args...), Cause: cause}
}

// Degenerate builds a KindDegenerate error for op.
func Degenerate(op, format string, args ...interface{}) error {
	return &Error{Kind: KindDegenerate, Op: op, Reason: fmt.Sprintf(format, args...)}
}

// Invariant builds a KindInvariant error for op.
func Invariant(op, format string, args ...interface{}) error {
	return &Error{Kind: KindInvariant, Op: op, Reason: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// Reason returns a short human-readable reason for display in a table cell.
func Reason(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
