// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to touch a resource owned by someone else, while
// ErrConflict signals that an operation lost a race for an exclusivity
// invariant (another reviewer already claimed the film) or targets an
// immutable completed review.
package repository

import "errors"

// ErrNotFound is returned when the requested film, user or review does
// not exist or is hidden from the caller (selecting a private film is
// indistinguishable from selecting a missing one). Handlers should
// translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an exclusivity invariant has already been
// claimed by a concurrent request, or when an operation would mutate a
// completed review. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")
