package repository

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/iliyamo/study-room-reservation/internal/model"
)

// ErrCheckInNotFound is returned when a check-in lookup yields no rows.
var ErrCheckInNotFound = errors.New("check-in not found")

// CheckInRepo owns the check_ins table and the bidirectional link
// between a check-in and the reservation it fulfils.
type CheckInRepo struct{ db *sql.DB }

func NewCheckInRepo(db *sql.DB) *CheckInRepo { return &CheckInRepo{db: db} }

// CheckInDetail is a check-in joined with room display fields.
type CheckInDetail struct {
	model.CheckIn
	RoomName     string
	RoomLocation string
}

// ActiveByStudentAndRoom returns the student's open check-in in the
// room, or (nil, nil) when there is none.
func (r *CheckInRepo) ActiveByStudentAndRoom(ctx context.Context, studentID, roomID uint64) (*model.CheckIn, error) {
	const q = `SELECT id, student_id, room_id, qrcode_id, reservation_id, status,
	                  check_in_time, check_out_time, duration_minutes, is_violation
	           FROM check_ins
	           WHERE student_id = ? AND room_id = ? AND status = ?
	           ORDER BY id DESC LIMIT 1`
	ci, err := scanCheckIn(r.db.QueryRowContext(ctx, q, studentID, roomID, model.CheckInActive).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ci, nil
}

func scanCheckIn(scan func(dest ...any) error) (*model.CheckIn, error) {
	var ci model.CheckIn
	var reservationID sql.NullInt64
	var checkOut sql.NullTime
	var duration sql.NullInt64
	err := scan(&ci.ID, &ci.StudentID, &ci.RoomID, &ci.QRCodeID, &reservationID,
		&ci.Status, &ci.CheckInTime, &checkOut, &duration, &ci.IsViolation)
	if err != nil {
		return nil, err
	}
	if reservationID.Valid {
		v := uint64(reservationID.Int64)
		ci.ReservationID = &v
	}
	if checkOut.Valid {
		t := checkOut.Time.UTC()
		ci.CheckOutTime = &t
	}
	if duration.Valid {
		d := int(duration.Int64)
		ci.DurationMin = &d
	}
	ci.CheckInTime = ci.CheckInTime.UTC()
	return &ci, nil
}

// Create inserts the check-in and, when the student holds a scheduled
// reservation in the room that has not ended yet, links the two rows
// and marks the reservation checked in. Everything runs in one
// transaction; the linked reservation id (zero when none) is returned
// alongside the new check-in id.
func (r *CheckInRepo) Create(ctx context.Context, studentID, roomID, qrcodeID uint64, at time.Time) (uint64, uint64, error) {
	atStr := at.UTC().Format(sqlTime)

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

	res, err := tx.ExecContext(ctx,
		`INSERT INTO check_ins (student_id, room_id, qrcode_id, status, check_in_time)
		 VALUES (?, ?, ?, ?, ?)`,
		studentID, roomID, qrcodeID, model.CheckInActive, atStr)
	if err != nil {
		return 0, 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, 0, err
	}
	checkInID := uint64(id)

	// Late arrivals still count: any scheduled reservation that has
	// not ended yet is fulfilled, earliest start first.
	var reservationID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM reservations
		 WHERE student_id = ? AND room_id = ? AND status = ? AND end_time > ?
		 ORDER BY start_time LIMIT 1 FOR UPDATE`,
		studentID, roomID, model.ReservationScheduled, atStr).Scan(&reservationID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Walk-in without a reservation; the check-in stands alone.
	case err != nil:
		return 0, 0, err
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE reservations SET status = ?, check_in_id = ? WHERE id = ?`,
			model.ReservationCheckedIn, checkInID, reservationID); err != nil {
			return 0, 0, err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE check_ins SET reservation_id = ? WHERE id = ?`,
			reservationID, checkInID); err != nil {
			return 0, 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	committed = true
	return checkInID, reservationID, nil
}

// CompleteLatest closes the student's most recent open check-in in the
// room, stamping checkout time and duration and completing the linked
// reservation, all in one transaction. ErrCheckInNotFound means there
// was nothing open to close.
func (r *CheckInRepo) CompleteLatest(ctx context.Context, studentID, roomID uint64, at time.Time) (*model.CheckIn, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ci, err := scanCheckIn(tx.QueryRowContext(ctx,
		`SELECT id, student_id, room_id, qrcode_id, reservation_id, status,
		        check_in_time, check_out_time, duration_minutes, is_violation
		 FROM check_ins
		 WHERE student_id = ? AND room_id = ? AND status = ?
		 ORDER BY id DESC LIMIT 1 FOR UPDATE`,
		studentID, roomID, model.CheckInActive).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCheckInNotFound
		}
		return nil, err
	}

	out := at.UTC()
	duration := int(math.Round(out.Sub(ci.CheckInTime).Minutes()))
	if duration < 0 {
		duration = 0
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE check_ins SET status = ?, check_out_time = ?, duration_minutes = ? WHERE id = ?`,
		model.CheckInDone, out.Format(sqlTime), duration, ci.ID); err != nil {
		return nil, err
	}
	if ci.ReservationID != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE reservations SET status = ? WHERE id = ? AND status = ?`,
			model.ReservationCompleted, *ci.ReservationID, model.ReservationCheckedIn); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	ci.Status = model.CheckInDone
	ci.CheckOutTime = &out
	ci.DurationMin = &duration
	return ci, nil
}

// ListByStudent returns the student's check-ins, newest first, joined
// with room display fields. An empty status keeps all rows.
func (r *CheckInRepo) ListByStudent(ctx context.Context, studentID uint64, status string, limit, offset int) ([]CheckInDetail, error) {
	q := `SELECT c.id, c.student_id, c.room_id, c.qrcode_id, c.reservation_id, c.status,
	             c.check_in_time, c.check_out_time, c.duration_minutes, c.is_violation,
	             rm.name, rm.location
	      FROM check_ins c
	      JOIN study_rooms rm ON rm.id = c.room_id
	      WHERE c.student_id = ?`
	args := []interface{}{studentID}
	if status != "" {
		q += ` AND c.status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY c.check_in_time DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]CheckInDetail, 0)
	for rows.Next() {
		var det CheckInDetail
		var reservationID sql.NullInt64
		var checkOut sql.NullTime
		var duration sql.NullInt64
		if err := rows.Scan(&det.ID, &det.StudentID, &det.RoomID, &det.QRCodeID, &reservationID,
			&det.Status, &det.CheckInTime, &checkOut, &duration, &det.IsViolation,
			&det.RoomName, &det.RoomLocation); err != nil {
			return nil, err
		}
		if reservationID.Valid {
			v := uint64(reservationID.Int64)
			det.ReservationID = &v
		}
		if checkOut.Valid {
			t := checkOut.Time.UTC()
			det.CheckOutTime = &t
		}
		if duration.Valid {
			d := int(duration.Int64)
			det.DurationMin = &d
		}
		det.CheckInTime = det.CheckInTime.UTC()
		result = append(result, det)
	}
	return result, rows.Err()
}
