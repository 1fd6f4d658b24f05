// Package types holds the error taxonomy and size limits shared by every
// memkit structure.
//
// Errors are typed with a stable Kind so callers can branch on intent rather
// than on message text:
//
//	if errors.Is(err, types.ErrDisposed) {
//	    // the structure was closed
//	}
//
// Any *Error matches a sentinel of the same Kind under errors.Is, which lets
// packages attach context to the message while keeping the category.
//
// This package has no dependencies beyond the standard library.
package types
