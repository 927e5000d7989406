package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/study-room-reservation/internal/model"
	"github.com/iliyamo/study-room-reservation/internal/repository"
)

// CheckInStore is the presence surface backed by the check-in tables.
type CheckInStore interface {
	ActiveByStudentAndRoom(ctx context.Context, studentID, roomID uint64) (*model.CheckIn, error)
	Create(ctx context.Context, studentID, roomID, qrcodeID uint64, at time.Time) (uint64, uint64, error)
	CompleteLatest(ctx context.Context, studentID, roomID uint64, at time.Time) (*model.CheckIn, error)
	ListByStudent(ctx context.Context, studentID uint64, status string, limit, offset int) ([]repository.CheckInDetail, error)
}

// TokenVerifier validates a scanned QR token and resolves the
// persisted record it matches.
type TokenVerifier interface {
	Verify(ctx context.Context, encoded string) (*model.QRCode, error)
}

// Presence tracks who is physically in a room: QR-scan check-in,
// checkout with duration, and the per-student attendance listing.
type Presence struct {
	checkIns CheckInStore
	verifier TokenVerifier
	rooms    RoomStore
	users    BanChecker
	now      func() time.Time
}

func NewPresence(checkIns CheckInStore, verifier TokenVerifier, rooms RoomStore, users BanChecker) *Presence {
	return &Presence{checkIns: checkIns, verifier: verifier, rooms: rooms, users: users, now: time.Now}
}

// Attendance describes the outcome of a successful check-in.
type Attendance struct {
	CheckInID     uint64
	RoomID        uint64
	RoomName      string
	RoomLocation  string
	ReservationID uint64 // zero when the check-in is a walk-in
	CheckInTime   time.Time
}

// CheckIn verifies the scanned token and opens a presence record in
// the token's room. The room must still exist; a token for a removed
// room is rejected with the room's not-found error. A student holds at
// most one open check-in per room; a linked scheduled reservation,
// when one exists, is fulfilled inside the same transaction. Banned
// students are turned away even with a valid token.
func (p *Presence) CheckIn(ctx context.Context, studentID uint64, encodedToken string) (*Attendance, error) {
	rec, err := p.verifier.Verify(ctx, encodedToken)
	if err != nil {
		return nil, err
	}
	room, err := p.rooms.GetByID(ctx, rec.RoomID)
	if err != nil {
		return nil, err
	}

	now := p.now().UTC()
	user, err := p.users.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if user.Banned(now) {
		return nil, ErrUserBanned
	}

	open, err := p.checkIns.ActiveByStudentAndRoom(ctx, studentID, rec.RoomID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, ErrAlreadyCheckedIn
	}

	checkInID, reservationID, err := p.checkIns.Create(ctx, studentID, rec.RoomID, rec.ID, now)
	if err != nil {
		return nil, err
	}
	return &Attendance{
		CheckInID:     checkInID,
		RoomID:        rec.RoomID,
		RoomName:      room.Name,
		RoomLocation:  room.Location,
		ReservationID: reservationID,
		CheckInTime:   now,
	}, nil
}

// CheckOut closes the student's open check-in in the room, recording
// checkout time and the stay duration in whole minutes.
func (p *Presence) CheckOut(ctx context.Context, studentID, roomID uint64) (*model.CheckIn, error) {
	ci, err := p.checkIns.CompleteLatest(ctx, studentID, roomID, p.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrCheckInNotFound) {
			return nil, ErrNoActiveCheckIn
		}
		return nil, err
	}
	return ci, nil
}

// ListCheckIns returns the student's attendance records, newest first.
// Limit defaults to 20 and is capped at 100.
func (p *Presence) ListCheckIns(ctx context.Context, studentID uint64, status string, limit, offset int) ([]repository.CheckInDetail, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return p.checkIns.ListByStudent(ctx, studentID, status, limit, offset)
}
