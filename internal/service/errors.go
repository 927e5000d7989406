// Package service holds the domain rules on top of the SQL
// repositories: booking validation, check-in presence tracking, the
// no-show violation engine and QR token lifecycle.  Services depend on
// small store interfaces so the rules are testable without a database.
package service

import (
	"errors"
	"time"
)

// MaxReservationDuration caps a single booking interval.
const MaxReservationDuration = 2 * time.Hour

// Validation and policy sentinels. Handlers map these to client
// errors; anything else is treated as an internal failure.
var (
	// ErrInvalidInterval means start is not strictly before end.
	ErrInvalidInterval = errors.New("start time must be before end time")
	// ErrDurationExceeded means the interval is longer than the cap.
	ErrDurationExceeded = errors.New("reservation exceeds maximum duration")
	// ErrUserBanned means the student is under an active ban.
	ErrUserBanned = errors.New("user is banned from making reservations")
	// ErrAlreadyCheckedIn means the student already holds an open
	// check-in in the room.
	ErrAlreadyCheckedIn = errors.New("already checked in to this room")
	// ErrNoActiveCheckIn means a checkout found nothing open to close.
	ErrNoActiveCheckIn = errors.New("no active check-in to check out from")
)

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
