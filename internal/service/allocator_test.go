package service

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/study-room-reservation/internal/model"
	"github.com/iliyamo/study-room-reservation/internal/repository"
)

type memSlot struct {
	id         uint64
	seatID     uint64
	roomID     uint64
	start, end time.Time
	reserved   bool
	by         uint64
}

// fakeSlotStore mirrors the SQL store's conflict semantics in memory.
type fakeSlotStore struct {
	seats     []model.Seat
	slots     []memSlot
	nextSlot  uint64
	nextRes   uint64
	roomNames map[uint64]string
}

func newFakeSlotStore(seats ...model.Seat) *fakeSlotStore {
	return &fakeSlotStore{seats: seats, roomNames: map[uint64]string{}}
}

func (f *fakeSlotStore) conflicts(seatID uint64, start, end time.Time) bool {
	for _, s := range f.slots {
		if s.reserved && s.seatID == seatID && Overlaps(start, end, s.start, s.end) {
			return true
		}
	}
	return false
}

func (f *fakeSlotStore) SeatAvailability(_ context.Context, roomID uint64, start, end time.Time) ([]repository.SeatAvailability, error) {
	result := make([]repository.SeatAvailability, 0)
	for _, seat := range f.seats {
		if seat.RoomID != roomID {
			continue
		}
		result = append(result, repository.SeatAvailability{
			SeatID:      seat.ID,
			SeatNumber:  seat.SeatNumber,
			HasPower:    seat.HasPower,
			IsAvailable: !f.conflicts(seat.ID, start, end),
		})
	}
	return result, nil
}

func (f *fakeSlotStore) AvailableSeats(_ context.Context, roomID uint64, start, end time.Time, requirePower bool) ([]model.Seat, error) {
	result := make([]model.Seat, 0)
	for _, seat := range f.seats {
		if seat.RoomID != roomID {
			continue
		}
		if requirePower && !seat.HasPower {
			continue
		}
		if f.conflicts(seat.ID, start, end) {
			continue
		}
		result = append(result, seat)
	}
	return result, nil
}

func (f *fakeSlotStore) Reserve(_ context.Context, seat *model.Seat, userID uint64, start, end time.Time) (uint64, uint64, error) {
	if f.conflicts(seat.ID, start, end) {
		return 0, 0, repository.ErrSeatConflict
	}
	for _, s := range f.slots {
		if s.reserved && s.by == userID && Overlaps(start, end, s.start, s.end) {
			return 0, 0, repository.ErrUserConflict
		}
	}
	f.nextSlot++
	f.nextRes++
	f.slots = append(f.slots, memSlot{
		id: f.nextSlot, seatID: seat.ID, roomID: seat.RoomID,
		start: start, end: end, reserved: true, by: userID,
	})
	return f.nextSlot, f.nextRes, nil
}

func (f *fakeSlotStore) Release(_ context.Context, slotID, userID uint64) error {
	for i := range f.slots {
		if f.slots[i].id != slotID {
			continue
		}
		if !f.slots[i].reserved {
			return repository.ErrSlotNotFound
		}
		if f.slots[i].by != userID {
			return repository.ErrForbidden
		}
		f.slots[i].reserved = false
		return nil
	}
	return repository.ErrSlotNotFound
}

func (f *fakeSlotStore) HistoryByUser(_ context.Context, userID uint64) ([]repository.SlotHistoryRecord, error) {
	result := make([]repository.SlotHistoryRecord, 0)
	for _, s := range f.slots {
		if s.by != userID {
			continue
		}
		result = append(result, repository.SlotHistoryRecord{
			SlotID:    s.id,
			RoomName:  f.roomNames[s.roomID],
			StartTime: s.start,
			EndTime:   s.end,
		})
	}
	return result, nil
}

type fakeSeatStore struct{ seats map[uint64]*model.Seat }

func (f *fakeSeatStore) GetByID(_ context.Context, id uint64) (*model.Seat, error) {
	if s, ok := f.seats[id]; ok {
		return s, nil
	}
	return nil, repository.ErrSeatNotFound
}

type fakeUserStore struct{ users map[uint64]*model.User }

func (f *fakeUserStore) GetByID(_ context.Context, id uint64) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func newAllocatorFixture(seats ...model.Seat) (*Allocator, *fakeSlotStore, *fakeUserStore) {
	slots := newFakeSlotStore(seats...)
	seatStore := &fakeSeatStore{seats: map[uint64]*model.Seat{}}
	for i := range seats {
		seatStore.seats[seats[i].ID] = &seats[i]
	}
	users := &fakeUserStore{users: map[uint64]*model.User{
		1: {ID: 1, Username: "amir", Role: model.RoleStudent},
		2: {ID: 2, Username: "sara", Role: model.RoleStudent},
	}}
	return NewAllocator(slots, seatStore, users), slots, users
}

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, time.UTC)
}

func TestReserveSlotRejectsInvalidInterval(t *testing.T) {
	alloc, _, _ := newAllocatorFixture(model.Seat{ID: 1, RoomID: 1, SeatNumber: "A1"})

	_, err := alloc.ReserveSlot(context.Background(), 1, 1, at(10, 0), at(10, 0))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = alloc.ReserveSlot(context.Background(), 1, 1, at(11, 0), at(10, 0))
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestReserveSlotRejectsExcessiveDuration(t *testing.T) {
	alloc, _, _ := newAllocatorFixture(model.Seat{ID: 1, RoomID: 1, SeatNumber: "A1"})

	_, err := alloc.ReserveSlot(context.Background(), 1, 1, at(10, 0), at(12, 1))
	assert.ErrorIs(t, err, ErrDurationExceeded)

	// Exactly the cap is allowed.
	_, err = alloc.ReserveSlot(context.Background(), 1, 1, at(10, 0), at(12, 0))
	assert.NoError(t, err)
}

func TestReserveSlotRejectsBannedUser(t *testing.T) {
	alloc, _, users := newAllocatorFixture(model.Seat{ID: 1, RoomID: 1, SeatNumber: "A1"})
	until := time.Now().UTC().Add(24 * time.Hour)
	users.users[1].BannedUntil = &until

	_, err := alloc.ReserveSlot(context.Background(), 1, 1, at(10, 0), at(11, 0))
	assert.ErrorIs(t, err, ErrUserBanned)
}

func TestReserveSlotExpiredBanIsIgnored(t *testing.T) {
	alloc, _, users := newAllocatorFixture(model.Seat{ID: 1, RoomID: 1, SeatNumber: "A1"})
	until := time.Now().UTC().Add(-time.Hour)
	users.users[1].BannedUntil = &until

	_, err := alloc.ReserveSlot(context.Background(), 1, 1, at(10, 0), at(11, 0))
	assert.NoError(t, err)
}

func TestReserveSlotSeatConflict(t *testing.T) {
	alloc, _, _ := newAllocatorFixture(model.Seat{ID: 1, RoomID: 1, SeatNumber: "A1"})

	_, err := alloc.ReserveSlot(context.Background(), 1, 1, at(10, 0), at(11, 0))
	require.NoError(t, err)

	_, err = alloc.ReserveSlot(context.Background(), 2, 1, at(10, 30), at(11, 30))
	assert.ErrorIs(t, err, repository.ErrSeatConflict)

	// Touching intervals do not conflict.
	_, err = alloc.ReserveSlot(context.Background(), 2, 1, at(11, 0), at(12, 0))
	assert.NoError(t, err)
}

func TestReserveSlotUserConflictAcrossSeats(t *testing.T) {
	alloc, _, _ := newAllocatorFixture(
		model.Seat{ID: 1, RoomID: 1, SeatNumber: "A1"},
		model.Seat{ID: 2, RoomID: 1, SeatNumber: "A2"},
	)

	_, err := alloc.ReserveSlot(context.Background(), 1, 1, at(10, 0), at(11, 0))
	require.NoError(t, err)

	_, err = alloc.ReserveSlot(context.Background(), 1, 2, at(10, 30), at(11, 30))
	assert.ErrorIs(t, err, repository.ErrUserConflict)
}

func TestSearchAvailableSeatsPowerFilter(t *testing.T) {
	alloc, _, _ := newAllocatorFixture(
		model.Seat{ID: 1, RoomID: 1, SeatNumber: "S1", HasPower: false},
		model.Seat{ID: 2, RoomID: 1, SeatNumber: "S2", HasPower: true},
	)

	all, err := alloc.SearchAvailableSeats(context.Background(), 1, at(10, 0), at(11, 0), false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	powered, err := alloc.SearchAvailableSeats(context.Background(), 1, at(10, 0), at(11, 0), true)
	require.NoError(t, err)
	require.Len(t, powered, 1)
	assert.Equal(t, "S2", powered[0].SeatNumber)
}

func TestCancelSlotOwnership(t *testing.T) {
	alloc, _, _ := newAllocatorFixture(model.Seat{ID: 1, RoomID: 1, SeatNumber: "A1"})

	ticket, err := alloc.ReserveSlot(context.Background(), 1, 1, at(10, 0), at(11, 0))
	require.NoError(t, err)

	assert.ErrorIs(t, alloc.CancelSlot(context.Background(), ticket.SlotID, 2), repository.ErrForbidden)
	assert.NoError(t, alloc.CancelSlot(context.Background(), ticket.SlotID, 1))

	// The freed interval can be rebooked by someone else.
	_, err = alloc.ReserveSlot(context.Background(), 2, 1, at(10, 0), at(11, 0))
	assert.NoError(t, err)
}

func TestReservationHistoryHasEnded(t *testing.T) {
	alloc, slots, _ := newAllocatorFixture(model.Seat{ID: 1, RoomID: 1, SeatNumber: "A1"})
	slots.roomNames[1] = "Quiet Room"
	now := time.Now().UTC()
	alloc.now = func() time.Time { return now }

	_, err := alloc.ReserveSlot(context.Background(), 1, 1, now.Add(-2*time.Hour), now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = alloc.ReserveSlot(context.Background(), 1, 1, now.Add(time.Hour), now.Add(2*time.Hour))
	require.NoError(t, err)

	entries, err := alloc.ReservationHistory(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byEnded := map[bool]int{}
	for _, e := range entries {
		byEnded[e.HasEnded]++
		assert.Equal(t, "Quiet Room", e.RoomName)
	}
	assert.Equal(t, 1, byEnded[true])
	assert.Equal(t, 1, byEnded[false])
}

// TestConcurrentBookingInvariant hammers one seat with random
// intervals and asserts no two accepted bookings ever overlap.
func TestConcurrentBookingInvariant(t *testing.T) {
	alloc, slots, users := newAllocatorFixture(model.Seat{ID: 1, RoomID: 1, SeatNumber: "A1"})
	rng := rand.New(rand.NewSource(42))

	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 300; i++ {
		userID := uint64(rng.Intn(20) + 1)
		if _, ok := users.users[userID]; !ok {
			users.users[userID] = &model.User{ID: userID, Role: model.RoleStudent}
		}
		start := base.Add(time.Duration(rng.Intn(240)) * time.Minute)
		end := start.Add(time.Duration(rng.Intn(110)+10) * time.Minute)
		_, err := alloc.ReserveSlot(context.Background(), userID, 1, start, end)
		if err != nil {
			assert.Contains(t, []error{repository.ErrSeatConflict, repository.ErrUserConflict}, err)
		}
	}

	reserved := make([]memSlot, 0)
	for _, s := range slots.slots {
		if s.reserved {
			reserved = append(reserved, s)
		}
	}
	require.NotEmpty(t, reserved)
	for i := 0; i < len(reserved); i++ {
		for j := i + 1; j < len(reserved); j++ {
			assert.False(t, Overlaps(reserved[i].start, reserved[i].end, reserved[j].start, reserved[j].end),
				"slots %d and %d overlap", reserved[i].id, reserved[j].id)
		}
	}
}

func TestOverlapsHalfOpen(t *testing.T) {
	a, b := at(10, 0), at(11, 0)
	assert.False(t, Overlaps(a, b, b, at(12, 0)))
	assert.False(t, Overlaps(b, at(12, 0), a, b))
	assert.True(t, Overlaps(a, b, at(10, 59), at(12, 0)))
	assert.True(t, Overlaps(at(10, 15), at(10, 45), a, b))
}
