// Package repository defines data access for the reservation service.
// Sentinel errors shared by multiple repositories live here so that
// handlers and services can distinguish failure scenarios with
// errors.Is.  Repository-specific sentinels (e.g. ErrSeatConflict)
// are declared next to the repository that produces them.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by someone else, such as cancelling another user's
// slot. Handlers translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because
// of conflicting state. Handlers translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")
