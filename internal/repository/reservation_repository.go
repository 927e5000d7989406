package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/study-room-reservation/internal/model"
)

// ReservationRepo provides access to the reservations table and owns
// the violation engine's batch transactions.  All timestamps are UTC.
type ReservationRepo struct{ db *sql.DB }

func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// ReservationWithRoom is a reservation joined with its room's display
// name, as the sweep and the student-facing listings need it.
type ReservationWithRoom struct {
	model.Reservation
	RoomName string
}

// NoShowAction is one decided no-show, computed by the violation
// engine and applied atomically by RecordNoShows. ViolationCount is
// the count the engine predicted for the notification and event;
// the stored counter itself is incremented relatively per applied
// row, so a reservation that got checked in mid-sweep never inflates
// it. BannedUntil is non-nil when this violation crossed the ban
// threshold.
type NoShowAction struct {
	ReservationID  uint64
	StudentID      uint64
	ViolationCount int
	BannedUntil    *time.Time
	Message        string
}

// ReminderNote is a pending reminder notification for one reservation.
type ReminderNote struct {
	ReservationID uint64
	StudentID     uint64
	Message       string
}

const reservationColumns = `r.id, r.student_id, r.room_id, r.slot_id, r.start_time,
	r.end_time, r.status, r.check_in_id, r.reminder_sent, r.created_at`

func scanReservationWithRoom(rows *sql.Rows) (*ReservationWithRoom, error) {
	var rec ReservationWithRoom
	var slotID, checkInID sql.NullInt64
	if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.RoomID, &slotID, &rec.StartTime,
		&rec.EndTime, &rec.Status, &checkInID, &rec.ReminderSent, &rec.CreatedAt,
		&rec.RoomName); err != nil {
		return nil, err
	}
	if slotID.Valid {
		v := uint64(slotID.Int64)
		rec.SlotID = &v
	}
	if checkInID.Valid {
		v := uint64(checkInID.Int64)
		rec.CheckInID = &v
	}
	rec.StartTime = rec.StartTime.UTC()
	rec.EndTime = rec.EndTime.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

func (r *ReservationRepo) queryWithRoom(ctx context.Context, q string, args ...interface{}) ([]ReservationWithRoom, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]ReservationWithRoom, 0)
	for rows.Next() {
		rec, err := scanReservationWithRoom(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

// UnremindedUpcoming returns scheduled reservations starting inside
// (from, to] whose reminder has not been sent yet.
func (r *ReservationRepo) UnremindedUpcoming(ctx context.Context, from, to time.Time) ([]ReservationWithRoom, error) {
	const q = `SELECT ` + reservationColumns + `, rm.name
	           FROM reservations r
	           JOIN study_rooms rm ON rm.id = r.room_id
	           WHERE r.status = ? AND r.reminder_sent = 0
	             AND r.start_time > ? AND r.start_time <= ?
	           ORDER BY r.start_time`
	return r.queryWithRoom(ctx, q, model.ReservationScheduled,
		from.UTC().Format(sqlTime), to.UTC().Format(sqlTime))
}

// OverdueScheduled returns scheduled reservations whose start passed
// before the cutoff, i.e. the no-show candidates of this sweep.
func (r *ReservationRepo) OverdueScheduled(ctx context.Context, cutoff time.Time) ([]ReservationWithRoom, error) {
	const q = `SELECT ` + reservationColumns + `, rm.name
	           FROM reservations r
	           JOIN study_rooms rm ON rm.id = r.room_id
	           WHERE r.status = ? AND r.start_time < ?
	           ORDER BY r.start_time`
	return r.queryWithRoom(ctx, q, model.ReservationScheduled,
		cutoff.UTC().Format(sqlTime))
}

// MarkReminded flips the reminder flag and appends the reminder
// notifications in a single transaction, so a reservation is never
// flagged without its notification or vice versa.
func (r *ReservationRepo) MarkReminded(ctx context.Context, notes []ReminderNote) error {
	if len(notes) == 0 {
		return nil
	}
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

	for _, n := range notes {
		if _, err := tx.ExecContext(ctx,
			`UPDATE reservations SET reminder_sent = 1 WHERE id = ?`, n.ReservationID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO notifications (user_id, message) VALUES (?, ?)`,
			n.StudentID, n.Message); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// RecordNoShows applies a whole sweep batch in one transaction: each
// reservation flips to violation_no_show, the student's violation
// counter (and ban, when crossed) is written, and the notification is
// appended. A failure anywhere rolls back the entire batch.
func (r *ReservationRepo) RecordNoShows(ctx context.Context, batch []NoShowAction) error {
	if len(batch) == 0 {
		return nil
	}
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

	for _, a := range batch {
		// Guard on status so a reservation checked in between the
		// sweep's read and this write is left alone.
		res, err := tx.ExecContext(ctx,
			`UPDATE reservations SET status = ? WHERE id = ? AND status = ?`,
			model.ReservationNoShow, a.ReservationID, model.ReservationScheduled)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET violation_count = violation_count + 1 WHERE id = ?`,
			a.StudentID); err != nil {
			return err
		}
		if a.BannedUntil != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE users SET banned_until = ? WHERE id = ?`,
				a.BannedUntil.UTC().Format(sqlTime), a.StudentID); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO notifications (user_id, message) VALUES (?, ?)`,
			a.StudentID, a.Message); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListByStudent returns the student's reservations, newest start first.
func (r *ReservationRepo) ListByStudent(ctx context.Context, studentID uint64) ([]ReservationWithRoom, error) {
	const q = `SELECT ` + reservationColumns + `, rm.name
	           FROM reservations r
	           JOIN study_rooms rm ON rm.id = r.room_id
	           WHERE r.student_id = ?
	           ORDER BY r.start_time DESC`
	return r.queryWithRoom(ctx, q, studentID)
}

// ViolationsByStudent returns the student's violation records, newest
// start first.
func (r *ReservationRepo) ViolationsByStudent(ctx context.Context, studentID uint64) ([]ReservationWithRoom, error) {
	const q = `SELECT ` + reservationColumns + `, rm.name
	           FROM reservations r
	           JOIN study_rooms rm ON rm.id = r.room_id
	           WHERE r.student_id = ? AND r.status LIKE 'violation%'
	           ORDER BY r.start_time DESC`
	return r.queryWithRoom(ctx, q, studentID)
}

// ViolationDetail is a violation record joined with both the student
// and room display names, for the admin review surface.
type ViolationDetail struct {
	ReservationWithRoom
	StudentName string
}

// AllViolations returns every violation in the system, newest start
// first.
func (r *ReservationRepo) AllViolations(ctx context.Context) ([]ViolationDetail, error) {
	const q = `SELECT ` + reservationColumns + `, rm.name, u.name
	           FROM reservations r
	           JOIN study_rooms rm ON rm.id = r.room_id
	           JOIN users u ON u.id = r.student_id
	           WHERE r.status LIKE 'violation%'
	           ORDER BY r.start_time DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]ViolationDetail, 0)
	for rows.Next() {
		var det ViolationDetail
		var slotID, checkInID sql.NullInt64
		if err := rows.Scan(&det.ID, &det.StudentID, &det.RoomID, &slotID, &det.StartTime,
			&det.EndTime, &det.Status, &checkInID, &det.ReminderSent, &det.CreatedAt,
			&det.RoomName, &det.StudentName); err != nil {
			return nil, err
		}
		if slotID.Valid {
			v := uint64(slotID.Int64)
			det.SlotID = &v
		}
		if checkInID.Valid {
			v := uint64(checkInID.Int64)
			det.CheckInID = &v
		}
		det.StartTime = det.StartTime.UTC()
		det.EndTime = det.EndTime.UTC()
		det.CreatedAt = det.CreatedAt.UTC()
		result = append(result, det)
	}
	return result, rows.Err()
}
