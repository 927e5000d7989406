package model

import "time"

// TimeSlot is a seat-scoped half-open time interval `[start, end)`
// that can be reserved by exactly one user.  A slot row is created
// lazily on first booking of an interval and reused when the exact
// `(seat, start, end)` tuple is booked again after release.  The
// central invariant of the allocator: for a fixed seat no two rows
// with IsReserved=true may have overlapping intervals.
//
// Fields:
//  ID         – primary key identifier.
//  RoomID     – room derived from the seat, denormalized for queries.
//  SeatID     – seat this interval belongs to.
//  StartTime  – inclusive interval start (UTC).
//  EndTime    – exclusive interval end (UTC).
//  IsReserved – whether the slot is currently held.
//  ReservedBy – holding user (nil when released).
type TimeSlot struct {
	ID         uint64    // time_slots.id
	RoomID     uint64    // time_slots.room_id
	SeatID     uint64    // time_slots.seat_id
	StartTime  time.Time // time_slots.start_time
	EndTime    time.Time // time_slots.end_time
	IsReserved bool      // time_slots.is_reserved
	ReservedBy *uint64   // time_slots.reserved_by (nullable)
}
