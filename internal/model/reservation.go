package model

import "time"

// Reservation statuses.  Scheduled reservations are the only ones the
// violation engine operates on; every other status is terminal from
// its point of view.
const (
	ReservationScheduled = "scheduled"
	ReservationCheckedIn = "checked_in"
	ReservationCompleted = "completed"
	ReservationCancelled = "cancelled"
	ReservationNoShow    = "violation_no_show"
)

// Reservation records a student's booking of a room for a time range.
// It is created together with the underlying TimeSlot in the same
// transaction so both ledgers always agree.  The violation engine
// sweeps scheduled reservations whose start has passed the no-show
// timeout.
//
// Fields:
//  ID           – primary key identifier.
//  StudentID    – user who made the reservation.
//  RoomID       – room being reserved.
//  SlotID       – backing time_slots row (nil for legacy rows).
//  StartTime    – reservation start (UTC).
//  EndTime      – reservation end (UTC).
//  Status       – one of the Reservation* constants.
//  CheckInID    – linked check-in once the student has arrived.
//  ReminderSent – set once the pre-start reminder notification went out.
//  CreatedAt    – creation timestamp.
type Reservation struct {
	ID           uint64    // reservations.id
	StudentID    uint64    // reservations.student_id
	RoomID       uint64    // reservations.room_id
	SlotID       *uint64   // reservations.slot_id (nullable)
	StartTime    time.Time // reservations.start_time
	EndTime      time.Time // reservations.end_time
	Status       string    // reservations.status
	CheckInID    *uint64   // reservations.check_in_id (nullable)
	ReminderSent bool      // reservations.reminder_sent
	CreatedAt    time.Time // reservations.created_at
}
