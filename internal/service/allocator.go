package service

import (
	"context"
	"time"

	"github.com/iliyamo/study-room-reservation/internal/model"
	"github.com/iliyamo/study-room-reservation/internal/repository"
)

// SlotStore is the booking surface the allocator needs from storage.
type SlotStore interface {
	SeatAvailability(ctx context.Context, roomID uint64, start, end time.Time) ([]repository.SeatAvailability, error)
	AvailableSeats(ctx context.Context, roomID uint64, start, end time.Time, requirePower bool) ([]model.Seat, error)
	Reserve(ctx context.Context, seat *model.Seat, userID uint64, start, end time.Time) (uint64, uint64, error)
	Release(ctx context.Context, slotID, userID uint64) error
	HistoryByUser(ctx context.Context, userID uint64) ([]repository.SlotHistoryRecord, error)
}

// SeatStore resolves seats for booking requests.
type SeatStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Seat, error)
}

// BanChecker resolves the user state the ban gate inspects.
type BanChecker interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// Allocator validates and executes seat bookings. Conflict detection
// itself lives in the store's transaction; the allocator owns the
// interval rules and the ban gate in front of it.
type Allocator struct {
	slots SlotStore
	seats SeatStore
	users BanChecker
	now   func() time.Time
}

func NewAllocator(slots SlotStore, seats SeatStore, users BanChecker) *Allocator {
	return &Allocator{slots: slots, seats: seats, users: users, now: time.Now}
}

// Ticket identifies a successful booking.
type Ticket struct {
	SlotID        uint64
	ReservationID uint64
	SeatID        uint64
	RoomID        uint64
	StartTime     time.Time
	EndTime       time.Time
}

// HistoryEntry is one row of a user's booking history.
type HistoryEntry struct {
	repository.SlotHistoryRecord
	HasEnded bool
}

func validateInterval(start, end time.Time) error {
	if !start.Before(end) {
		return ErrInvalidInterval
	}
	if end.Sub(start) > MaxReservationDuration {
		return ErrDurationExceeded
	}
	return nil
}

// RoomSeatStatus returns per-seat availability of a room for an
// interval.
func (a *Allocator) RoomSeatStatus(ctx context.Context, roomID uint64, start, end time.Time) ([]repository.SeatAvailability, error) {
	if err := validateInterval(start, end); err != nil {
		return nil, err
	}
	return a.slots.SeatAvailability(ctx, roomID, start.UTC(), end.UTC())
}

// SearchAvailableSeats returns the free seats of a room for an
// interval, optionally only those with a power outlet.
func (a *Allocator) SearchAvailableSeats(ctx context.Context, roomID uint64, start, end time.Time, requirePower bool) ([]model.Seat, error) {
	if err := validateInterval(start, end); err != nil {
		return nil, err
	}
	return a.slots.AvailableSeats(ctx, roomID, start.UTC(), end.UTC(), requirePower)
}

// ReserveSlot books a seat for the user over [start, end). Banned
// users are rejected before any storage write. Conflicts surface as
// the store's sentinel errors.
func (a *Allocator) ReserveSlot(ctx context.Context, userID, seatID uint64, start, end time.Time) (*Ticket, error) {
	if err := validateInterval(start, end); err != nil {
		return nil, err
	}
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Banned(a.now().UTC()) {
		return nil, ErrUserBanned
	}
	seat, err := a.seats.GetByID(ctx, seatID)
	if err != nil {
		return nil, err
	}
	slotID, reservationID, err := a.slots.Reserve(ctx, seat, userID, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	return &Ticket{
		SlotID:        slotID,
		ReservationID: reservationID,
		SeatID:        seat.ID,
		RoomID:        seat.RoomID,
		StartTime:     start.UTC(),
		EndTime:       end.UTC(),
	}, nil
}

// CancelSlot releases the user's booking. Ownership is enforced by the
// store.
func (a *Allocator) CancelSlot(ctx context.Context, slotID, userID uint64) error {
	return a.slots.Release(ctx, slotID, userID)
}

// ReservationHistory returns the user's bookings, newest first, each
// flagged with whether its interval has already ended.
func (a *Allocator) ReservationHistory(ctx context.Context, userID uint64) ([]HistoryEntry, error) {
	records, err := a.slots.HistoryByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := a.now().UTC()
	entries := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, HistoryEntry{
			SlotHistoryRecord: rec,
			HasEnded:          rec.EndTime.Before(now),
		})
	}
	return entries, nil
}
