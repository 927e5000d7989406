package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/study-room-reservation/internal/model"
	"github.com/iliyamo/study-room-reservation/internal/qrtoken"
	"github.com/iliyamo/study-room-reservation/internal/repository"
)

type fakeVerifier struct {
	rec *model.QRCode
	err error
}

func (f *fakeVerifier) Verify(context.Context, string) (*model.QRCode, error) {
	return f.rec, f.err
}

type fakeCheckInStore struct {
	checkIns    []model.CheckIn
	nextID      uint64
	reservation uint64 // id linked on Create, zero for walk-ins
}

func (f *fakeCheckInStore) ActiveByStudentAndRoom(_ context.Context, studentID, roomID uint64) (*model.CheckIn, error) {
	for i := range f.checkIns {
		ci := &f.checkIns[i]
		if ci.StudentID == studentID && ci.RoomID == roomID && ci.Status == model.CheckInActive {
			return ci, nil
		}
	}
	return nil, nil
}

func (f *fakeCheckInStore) Create(_ context.Context, studentID, roomID, qrcodeID uint64, at time.Time) (uint64, uint64, error) {
	f.nextID++
	ci := model.CheckIn{
		ID: f.nextID, StudentID: studentID, RoomID: roomID, QRCodeID: qrcodeID,
		Status: model.CheckInActive, CheckInTime: at,
	}
	if f.reservation != 0 {
		r := f.reservation
		ci.ReservationID = &r
	}
	f.checkIns = append(f.checkIns, ci)
	return f.nextID, f.reservation, nil
}

func (f *fakeCheckInStore) CompleteLatest(_ context.Context, studentID, roomID uint64, at time.Time) (*model.CheckIn, error) {
	for i := len(f.checkIns) - 1; i >= 0; i-- {
		ci := &f.checkIns[i]
		if ci.StudentID != studentID || ci.RoomID != roomID || ci.Status != model.CheckInActive {
			continue
		}
		out := at.UTC()
		d := int(math.Round(out.Sub(ci.CheckInTime).Minutes()))
		ci.Status = model.CheckInDone
		ci.CheckOutTime = &out
		ci.DurationMin = &d
		return ci, nil
	}
	return nil, repository.ErrCheckInNotFound
}

func (f *fakeCheckInStore) ListByStudent(_ context.Context, studentID uint64, status string, limit, offset int) ([]repository.CheckInDetail, error) {
	result := make([]repository.CheckInDetail, 0)
	for _, ci := range f.checkIns {
		if ci.StudentID != studentID {
			continue
		}
		if status != "" && ci.Status != status {
			continue
		}
		result = append(result, repository.CheckInDetail{CheckIn: ci})
	}
	if offset > len(result) {
		offset = len(result)
	}
	result = result[offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func newPresenceFixture(rec *model.QRCode, verifyErr error) (*Presence, *fakeCheckInStore, *fakeUserStore) {
	store := &fakeCheckInStore{}
	rooms := &fakeRoomStore{rooms: map[uint64]*model.Room{
		3: {ID: 3, Name: "Quiet Room", Location: "Library 2F"},
	}}
	users := &fakeUserStore{users: map[uint64]*model.User{
		1: {ID: 1, Username: "amir", Role: model.RoleStudent},
	}}
	p := NewPresence(store, &fakeVerifier{rec: rec, err: verifyErr}, rooms, users)
	return p, store, users
}

func TestCheckInSuccess(t *testing.T) {
	rec := &model.QRCode{ID: 7, RoomID: 3, Code: "abc", IsActive: true}
	p, store, _ := newPresenceFixture(rec, nil)
	store.reservation = 42

	att, err := p.CheckIn(context.Background(), 1, "token")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), att.RoomID)
	assert.Equal(t, "Quiet Room", att.RoomName)
	assert.Equal(t, "Library 2F", att.RoomLocation)
	assert.Equal(t, uint64(42), att.ReservationID)
	assert.NotZero(t, att.CheckInID)
}

func TestCheckInRejectsMissingRoom(t *testing.T) {
	// A token can outlive its room; the check-in must surface the
	// room's absence rather than open a dangling record.
	rec := &model.QRCode{ID: 7, RoomID: 99, Code: "abc", IsActive: true}
	p, store, _ := newPresenceFixture(rec, nil)

	_, err := p.CheckIn(context.Background(), 1, "token")
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
	assert.Empty(t, store.checkIns)
}

func TestCheckInWalkInHasNoReservation(t *testing.T) {
	rec := &model.QRCode{ID: 7, RoomID: 3, Code: "abc", IsActive: true}
	p, _, _ := newPresenceFixture(rec, nil)

	att, err := p.CheckIn(context.Background(), 1, "token")
	require.NoError(t, err)
	assert.Zero(t, att.ReservationID)
}

func TestCheckInRejectsInvalidToken(t *testing.T) {
	p, store, _ := newPresenceFixture(nil, qrtoken.ErrSignatureMismatch)

	_, err := p.CheckIn(context.Background(), 1, "token")
	assert.ErrorIs(t, err, qrtoken.ErrSignatureMismatch)
	assert.Empty(t, store.checkIns)
}

func TestCheckInRejectsBannedStudent(t *testing.T) {
	rec := &model.QRCode{ID: 7, RoomID: 3, Code: "abc", IsActive: true}
	p, store, users := newPresenceFixture(rec, nil)
	until := time.Now().UTC().Add(48 * time.Hour)
	users.users[1].BannedUntil = &until

	_, err := p.CheckIn(context.Background(), 1, "token")
	assert.ErrorIs(t, err, ErrUserBanned)
	assert.Empty(t, store.checkIns)
}

func TestCheckInRejectsDoubleEntry(t *testing.T) {
	rec := &model.QRCode{ID: 7, RoomID: 3, Code: "abc", IsActive: true}
	p, _, _ := newPresenceFixture(rec, nil)

	_, err := p.CheckIn(context.Background(), 1, "token")
	require.NoError(t, err)

	_, err = p.CheckIn(context.Background(), 1, "token")
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
}

func TestCheckOutComputesDuration(t *testing.T) {
	rec := &model.QRCode{ID: 7, RoomID: 3, Code: "abc", IsActive: true}
	p, _, _ := newPresenceFixture(rec, nil)

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return start }
	_, err := p.CheckIn(context.Background(), 1, "token")
	require.NoError(t, err)

	p.now = func() time.Time { return start.Add(50*time.Minute + 20*time.Second) }
	ci, err := p.CheckOut(context.Background(), 1, 3)
	require.NoError(t, err)
	require.NotNil(t, ci.DurationMin)
	assert.Equal(t, 50, *ci.DurationMin)
	assert.Equal(t, model.CheckInDone, ci.Status)

	// The seconds round up past the half-minute mark.
	_, err = p.CheckIn(context.Background(), 1, "token")
	require.NoError(t, err)
	p.now = func() time.Time { return start.Add(50*time.Minute + 31*time.Second) }
	ci, err = p.CheckOut(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 51, *ci.DurationMin)
}

func TestCheckOutWithoutActiveCheckIn(t *testing.T) {
	rec := &model.QRCode{ID: 7, RoomID: 3, Code: "abc", IsActive: true}
	p, _, _ := newPresenceFixture(rec, nil)

	_, err := p.CheckOut(context.Background(), 1, 3)
	assert.ErrorIs(t, err, ErrNoActiveCheckIn)
}

func TestCheckOutThenCheckInAgain(t *testing.T) {
	rec := &model.QRCode{ID: 7, RoomID: 3, Code: "abc", IsActive: true}
	p, _, _ := newPresenceFixture(rec, nil)

	_, err := p.CheckIn(context.Background(), 1, "token")
	require.NoError(t, err)
	_, err = p.CheckOut(context.Background(), 1, 3)
	require.NoError(t, err)

	_, err = p.CheckIn(context.Background(), 1, "token")
	assert.NoError(t, err)
}

func TestListCheckInsClampsPaging(t *testing.T) {
	rec := &model.QRCode{ID: 7, RoomID: 3, Code: "abc", IsActive: true}
	p, store, _ := newPresenceFixture(rec, nil)
	for i := 0; i < 5; i++ {
		_, err := p.CheckIn(context.Background(), 1, "token")
		require.NoError(t, err)
		_, err = p.CheckOut(context.Background(), 1, 3)
		require.NoError(t, err)
	}

	all, err := p.ListCheckIns(context.Background(), 1, "", 0, -3)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	done, err := p.ListCheckIns(context.Background(), 1, model.CheckInDone, 2, 0)
	require.NoError(t, err)
	assert.Len(t, done, 2)
	assert.Len(t, store.checkIns, 5)
}
