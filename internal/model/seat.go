package model

// Seat describes a physical seat inside a study room.  The seat
// number is scoped to the room, not globally unique.  Seats are
// immutable once created except for the power flag.
//
// Fields:
//  ID         – primary key identifier.
//  RoomID     – room to which this seat belongs.
//  SeatNumber – room-scoped label, e.g. "A12".
//  HasPower   – whether the seat has a power outlet.
type Seat struct {
	ID         uint64 // seats.id
	RoomID     uint64 // seats.room_id
	SeatNumber string // seats.seat_number
	HasPower   bool   // seats.has_power
}
