// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist or is not
// owned by the requesting user.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates invalid caller input. Wrap it with the specific
// message: fmt.Errorf("%w: message must not be empty", domain.ErrValidation).
var ErrValidation = errors.New("validation failed")

// ErrUnauthorized indicates missing or invalid credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden indicates valid credentials without permission for the resource.
var ErrForbidden = errors.New("forbidden")

// ErrModelInvocation indicates the model gateway could not produce a
// completion. Callers surface it as a generic internal error; details stay
// in server logs.
var ErrModelInvocation = errors.New("model invocation failed")
