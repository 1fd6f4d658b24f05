package types

import "fmt"

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindInvalidArgument ErrKind = iota + 1 // bad size, alignment, key, index or range
	ErrKindDisposed                           // operation on a closed instance
	ErrKindOutOfMemory                        // the memory source refused a reservation
	ErrKindNotFound                           // missing key or untracked handle
	ErrKindEndOfData                          // read past the used extent of a buffer
)

// String returns the category name.
func (k ErrKind) String() string {
	switch k {
	case ErrKindInvalidArgument:
		return "invalid argument"
	case ErrKindDisposed:
		return "disposed"
	case ErrKindOutOfMemory:
		return "out of memory"
	case ErrKindNotFound:
		return "not found"
	case ErrKindEndOfData:
		return "end of data"
	default:
		return fmt.Sprintf("ErrKind(%d)", int(k))
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels commonly returned by implementations.
var (
	// ErrInvalidArgument indicates a caller-supplied value was out of range.
	ErrInvalidArgument = &Error{Kind: ErrKindInvalidArgument, Msg: "invalid argument"}
	// ErrDisposed indicates the instance was closed.
	ErrDisposed = &Error{Kind: ErrKindDisposed, Msg: "instance is disposed"}
	// ErrOutOfMemory indicates the underlying memory source failed.
	ErrOutOfMemory = &Error{Kind: ErrKindOutOfMemory, Msg: "out of memory"}
	// ErrNotFound indicates a missing key or an untracked handle.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	// ErrEndOfData indicates fewer bytes remain than a read requires.
	ErrEndOfData = &Error{Kind: ErrKindEndOfData, Msg: "end of data"}
)

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around cause.
func Wrap(kind ErrKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// Disposed returns the error a closed instance of the named structure reports.
func Disposed(what string) *Error {
	return &Error{Kind: ErrKindDisposed, Msg: what + ": instance is disposed"}
}
