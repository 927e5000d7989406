package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/study-room-reservation/internal/model"
)

// Booking conflict sentinels produced by Reserve.
var (
	// ErrSeatConflict means another reserved slot on the same seat
	// overlaps the requested interval.
	ErrSeatConflict = errors.New("seat already reserved for this interval")
	// ErrUserConflict means the user already holds a reserved slot, on
	// any seat, overlapping the requested interval.
	ErrUserConflict = errors.New("user already has a reservation in this interval")
	// ErrSlotNotFound is returned when a slot lookup yields no rows.
	ErrSlotNotFound = errors.New("slot not found")
)

// sqlTime is the DATETIME layout used when binding time arguments.
// Formatting explicitly (always UTC, second precision) keeps the
// find-or-create equality match on (seat, start, end) exact.
const sqlTime = "2006-01-02 15:04:05"

// SlotRepo owns the time_slots table and the booking transaction.
// The allocator's core invariant — no two reserved slots with
// overlapping [start, end) on one seat — is enforced here: conflict
// checks and the reserve write run in one transaction serialized by a
// SELECT ... FOR UPDATE on the seat row, so concurrent bookings of the
// same seat cannot interleave between check and insert.
type SlotRepo struct{ db *sql.DB }

func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// SeatAvailability pairs a seat with its availability for a queried
// interval.
type SeatAvailability struct {
	SeatID      uint64
	SeatNumber  string
	HasPower    bool
	IsAvailable bool
}

// SlotHistoryRecord is one row of a user's reservation history.
type SlotHistoryRecord struct {
	SlotID     uint64
	RoomName   string
	SeatNumber string
	StartTime  time.Time
	EndTime    time.Time
}

// overlapCond matches reserved slots whose half-open interval
// intersects [?, ?): existing.start < end AND existing.end > start.
// A slot ending exactly when another starts does not conflict.
const overlapCond = `is_reserved = 1 AND start_time < ? AND end_time > ?`

// SeatAvailability returns every seat of the room with a flag telling
// whether the given interval is free of reserved slots on that seat.
func (r *SlotRepo) SeatAvailability(ctx context.Context, roomID uint64, start, end time.Time) ([]SeatAvailability, error) {
	const q = `SELECT s.id, s.seat_number, s.has_power,
	                  NOT EXISTS (
	                      SELECT 1 FROM time_slots t
	                      WHERE t.seat_id = s.id AND t.` + overlapCond + `
	                  ) AS is_available
	           FROM seats s
	           WHERE s.room_id = ?
	           ORDER BY s.seat_number`
	rows, err := r.db.QueryContext(ctx, q,
		end.UTC().Format(sqlTime), start.UTC().Format(sqlTime), roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]SeatAvailability, 0)
	for rows.Next() {
		var sa SeatAvailability
		if err := rows.Scan(&sa.SeatID, &sa.SeatNumber, &sa.HasPower, &sa.IsAvailable); err != nil {
			return nil, err
		}
		result = append(result, sa)
	}
	return result, rows.Err()
}

// AvailableSeats returns the seats of a room that are free for the
// interval, optionally restricted to seats with power. A room without
// seats yields an empty slice, not an error.
func (r *SlotRepo) AvailableSeats(ctx context.Context, roomID uint64, start, end time.Time, requirePower bool) ([]model.Seat, error) {
	q := `SELECT s.id, s.room_id, s.seat_number, s.has_power
	      FROM seats s
	      WHERE s.room_id = ?
	        AND NOT EXISTS (
	            SELECT 1 FROM time_slots t
	            WHERE t.seat_id = s.id AND t.` + overlapCond + `
	        )`
	args := []interface{}{roomID, end.UTC().Format(sqlTime), start.UTC().Format(sqlTime)}
	if requirePower {
		q += ` AND s.has_power = 1`
	}
	q += ` ORDER BY s.seat_number`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Seat, 0)
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.RoomID, &s.SeatNumber, &s.HasPower); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// Reserve books the interval on the seat for the user and creates the
// linked scheduled reservation, all in one transaction. It returns the
// slot id and the reservation id. Conflicts surface as ErrSeatConflict
// or ErrUserConflict with nothing written.
func (r *SlotRepo) Reserve(ctx context.Context, seat *model.Seat, userID uint64, start, end time.Time) (uint64, uint64, error) {
	startStr := start.UTC().Format(sqlTime)
	endStr := end.UTC().Format(sqlTime)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Serialization point: concurrent bookings of the same seat queue
	// on this row lock, so the conflict checks below see committed
	// state only.
	var lockedID uint64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM seats WHERE id = ? FOR UPDATE`, seat.ID).Scan(&lockedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, ErrSeatNotFound
		}
		return 0, 0, err
	}

	var conflict bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM time_slots WHERE seat_id = ? AND `+overlapCond+`)`,
		seat.ID, endStr, startStr).Scan(&conflict); err != nil {
		return 0, 0, err
	}
	if conflict {
		return 0, 0, ErrSeatConflict
	}

	// The user-side check spans every seat, so it is keyed by user id
	// alone.
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM time_slots WHERE reserved_by = ? AND `+overlapCond+`)`,
		userID, endStr, startStr).Scan(&conflict); err != nil {
		return 0, 0, err
	}
	if conflict {
		return 0, 0, ErrUserConflict
	}

	// Find-or-create the exact (seat, start, end) slot inside the same
	// transaction; a released row for the identical interval is reused.
	var slotID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM time_slots WHERE seat_id = ? AND start_time = ? AND end_time = ? FOR UPDATE`,
		seat.ID, startStr, endStr).Scan(&slotID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, insErr := tx.ExecContext(ctx,
			`INSERT INTO time_slots (room_id, seat_id, start_time, end_time, is_reserved, reserved_by)
			 VALUES (?, ?, ?, ?, 1, ?)`,
			seat.RoomID, seat.ID, startStr, endStr, userID)
		if insErr != nil {
			return 0, 0, insErr
		}
		id, insErr := res.LastInsertId()
		if insErr != nil {
			return 0, 0, insErr
		}
		slotID = uint64(id)
	case err != nil:
		return 0, 0, err
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE time_slots SET is_reserved = 1, reserved_by = ? WHERE id = ?`,
			userID, slotID); err != nil {
			return 0, 0, err
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (student_id, room_id, slot_id, start_time, end_time, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, seat.RoomID, slotID, startStr, endStr, model.ReservationScheduled)
	if err != nil {
		return 0, 0, err
	}
	resID, err := res.LastInsertId()
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	committed = true
	return slotID, uint64(resID), nil
}

// Release clears the reserved flag of the user's slot and cancels the
// linked scheduled reservation in one transaction. The slot row is
// kept for reuse and history. Releasing a slot held by someone else
// returns ErrForbidden.
func (r *SlotRepo) Release(ctx context.Context, slotID, userID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var reservedBy sql.NullInt64
	var isReserved bool
	err = tx.QueryRowContext(ctx,
		`SELECT reserved_by, is_reserved FROM time_slots WHERE id = ? FOR UPDATE`,
		slotID).Scan(&reservedBy, &isReserved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSlotNotFound
		}
		return err
	}
	if !isReserved {
		return ErrSlotNotFound
	}
	if !reservedBy.Valid || uint64(reservedBy.Int64) != userID {
		return ErrForbidden
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE time_slots SET is_reserved = 0 WHERE id = ?`, slotID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = ? WHERE slot_id = ? AND status = ?`,
		model.ReservationCancelled, slotID, model.ReservationScheduled); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// HistoryByUser returns every slot the user has booked, newest start
// first, joined with room and seat display fields.
func (r *SlotRepo) HistoryByUser(ctx context.Context, userID uint64) ([]SlotHistoryRecord, error) {
	const q = `SELECT t.id, rm.name, s.seat_number, t.start_time, t.end_time
	           FROM time_slots t
	           JOIN seats s ON s.id = t.seat_id
	           JOIN study_rooms rm ON rm.id = t.room_id
	           WHERE t.reserved_by = ?
	           ORDER BY t.start_time DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]SlotHistoryRecord, 0)
	for rows.Next() {
		var rec SlotHistoryRecord
		if err := rows.Scan(&rec.SlotID, &rec.RoomName, &rec.SeatNumber,
			&rec.StartTime, &rec.EndTime); err != nil {
			return nil, err
		}
		rec.StartTime = rec.StartTime.UTC()
		rec.EndTime = rec.EndTime.UTC()
		result = append(result, rec)
	}
	return result, rows.Err()
}
