package model

import "time"

// CheckIn statuses.
const (
	CheckInActive  = "checked_in"
	CheckInDone    = "checked_out"
	CheckInExpired = "expired"
)

// CheckIn records a student's presence session in a room, opened by
// scanning the room's QR token and closed by an explicit check-out.
// Invariant: at most one row with status `checked_in` per
// (student, room) pair at any time.
//
// Fields:
//  ID            – primary key identifier.
//  StudentID     – student who checked in.
//  RoomID        – room checked into.
//  QRCodeID      – token that admitted the student.
//  ReservationID – reservation fulfilled by this check-in, when any.
//  Status        – one of the CheckIn* constants.
//  CheckInTime   – when the session opened (UTC).
//  CheckOutTime  – when the session closed (nil while active).
//  DurationMin   – whole minutes between in and out, computed at checkout.
//  IsViolation   – set when the session was closed by the no-show sweep.
type CheckIn struct {
	ID            uint64     // check_ins.id
	StudentID     uint64     // check_ins.student_id
	RoomID        uint64     // check_ins.room_id
	QRCodeID      uint64     // check_ins.qrcode_id
	ReservationID *uint64    // check_ins.reservation_id (nullable)
	Status        string     // check_ins.status
	CheckInTime   time.Time  // check_ins.check_in_time
	CheckOutTime  *time.Time // check_ins.check_out_time (nullable)
	DurationMin   *int       // check_ins.duration_minutes (nullable)
	IsViolation   bool       // check_ins.is_violation
}
