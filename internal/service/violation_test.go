package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/study-room-reservation/internal/model"
	"github.com/iliyamo/study-room-reservation/internal/queue"
	"github.com/iliyamo/study-room-reservation/internal/repository"
)

type fakeViolationStore struct {
	reservations  []repository.ReservationWithRoom
	users         *fakeUserStore
	notifications []repository.ReminderNote
	afterOverdue  func() // runs between the sweep's read and its writes
}

func (f *fakeViolationStore) UnremindedUpcoming(_ context.Context, from, to time.Time) ([]repository.ReservationWithRoom, error) {
	result := make([]repository.ReservationWithRoom, 0)
	for _, r := range f.reservations {
		if r.Status == model.ReservationScheduled && !r.ReminderSent &&
			r.StartTime.After(from) && !r.StartTime.After(to) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (f *fakeViolationStore) OverdueScheduled(_ context.Context, cutoff time.Time) ([]repository.ReservationWithRoom, error) {
	result := make([]repository.ReservationWithRoom, 0)
	for _, r := range f.reservations {
		if r.Status == model.ReservationScheduled && r.StartTime.Before(cutoff) {
			result = append(result, r)
		}
	}
	if f.afterOverdue != nil {
		f.afterOverdue()
	}
	return result, nil
}

func (f *fakeViolationStore) MarkReminded(_ context.Context, notes []repository.ReminderNote) error {
	for _, n := range notes {
		for i := range f.reservations {
			if f.reservations[i].ID == n.ReservationID {
				f.reservations[i].ReminderSent = true
			}
		}
		f.notifications = append(f.notifications, n)
	}
	return nil
}

func (f *fakeViolationStore) RecordNoShows(_ context.Context, batch []repository.NoShowAction) error {
	for _, a := range batch {
		// Mirrors the status guard: a reservation checked in between
		// the read and the write is left alone, and the counter only
		// moves for applied rows.
		applied := false
		for i := range f.reservations {
			if f.reservations[i].ID == a.ReservationID &&
				f.reservations[i].Status == model.ReservationScheduled {
				f.reservations[i].Status = model.ReservationNoShow
				applied = true
			}
		}
		if !applied {
			continue
		}
		u := f.users.users[a.StudentID]
		u.ViolationCount++
		if a.BannedUntil != nil {
			until := *a.BannedUntil
			u.BannedUntil = &until
		}
		f.notifications = append(f.notifications, repository.ReminderNote{
			ReservationID: a.ReservationID, StudentID: a.StudentID, Message: a.Message,
		})
	}
	return nil
}

type fakeTunables struct{ values map[string]int }

func (f *fakeTunables) GetInt(_ context.Context, key string, def int) (int, error) {
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return def, nil
}

type capturePublisher struct{ events []queue.ViolationRecordedEvent }

func (c *capturePublisher) PublishViolationRecorded(_ context.Context, ev queue.ViolationRecordedEvent) error {
	c.events = append(c.events, ev)
	return nil
}

type violationFixture struct {
	engine    *ViolationEngine
	store     *fakeViolationStore
	users     *fakeUserStore
	publisher *capturePublisher
	now       time.Time
}

func newViolationFixture(tunables map[string]int) *violationFixture {
	users := &fakeUserStore{users: map[uint64]*model.User{
		1: {ID: 1, Username: "amir", Role: model.RoleStudent},
		2: {ID: 2, Username: "sara", Role: model.RoleStudent},
	}}
	store := &fakeViolationStore{users: users}
	publisher := &capturePublisher{}
	engine := NewViolationEngine(store, users, &fakeTunables{values: tunables}, publisher, nil)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }
	return &violationFixture{engine: engine, store: store, users: users, publisher: publisher, now: now}
}

func (fx *violationFixture) addReservation(id, studentID uint64, start time.Time) {
	fx.store.reservations = append(fx.store.reservations, repository.ReservationWithRoom{
		Reservation: model.Reservation{
			ID: id, StudentID: studentID, RoomID: 1,
			StartTime: start, EndTime: start.Add(time.Hour),
			Status: model.ReservationScheduled,
		},
		RoomName: "Quiet Room",
	})
}

func TestRemindUpcomingSendsOnce(t *testing.T) {
	fx := newViolationFixture(nil)
	fx.addReservation(1, 1, fx.now.Add(10*time.Minute))

	require.NoError(t, fx.engine.RemindUpcoming(context.Background()))
	require.Len(t, fx.store.notifications, 1)
	assert.Contains(t, fx.store.notifications[0].Message, "Quiet Room")

	// A second sweep finds the reservation already flagged.
	require.NoError(t, fx.engine.RemindUpcoming(context.Background()))
	assert.Len(t, fx.store.notifications, 1)
}

func TestRemindUpcomingSkipsOutsideWindow(t *testing.T) {
	fx := newViolationFixture(map[string]int{model.SettingReminderBeforeMin: 15})
	fx.addReservation(1, 1, fx.now.Add(30*time.Minute))
	fx.addReservation(2, 1, fx.now.Add(-5*time.Minute))

	require.NoError(t, fx.engine.RemindUpcoming(context.Background()))
	assert.Empty(t, fx.store.notifications)
}

func TestProcessNoShowsIncrementsCount(t *testing.T) {
	fx := newViolationFixture(nil)
	fx.addReservation(1, 1, fx.now.Add(-30*time.Minute))

	require.NoError(t, fx.engine.ProcessNoShows(context.Background()))

	assert.Equal(t, model.ReservationNoShow, fx.store.reservations[0].Status)
	assert.Equal(t, 1, fx.users.users[1].ViolationCount)
	assert.Nil(t, fx.users.users[1].BannedUntil)
	require.Len(t, fx.store.notifications, 1)
	assert.Contains(t, fx.store.notifications[0].Message, "2 more")
}

func TestProcessNoShowsRespectsGracePeriod(t *testing.T) {
	fx := newViolationFixture(map[string]int{model.SettingNoShowTimeoutMin: 10})
	fx.addReservation(1, 1, fx.now.Add(-5*time.Minute))

	require.NoError(t, fx.engine.ProcessNoShows(context.Background()))
	assert.Equal(t, model.ReservationScheduled, fx.store.reservations[0].Status)
	assert.Zero(t, fx.users.users[1].ViolationCount)
}

func TestProcessNoShowsBansAtThreshold(t *testing.T) {
	fx := newViolationFixture(nil)
	fx.users.users[1].ViolationCount = 2
	fx.addReservation(1, 1, fx.now.Add(-30*time.Minute))

	require.NoError(t, fx.engine.ProcessNoShows(context.Background()))

	u := fx.users.users[1]
	assert.Equal(t, 3, u.ViolationCount)
	require.NotNil(t, u.BannedUntil)
	expected := fx.now.AddDate(0, 0, DefaultBanDays)
	assert.Equal(t, expected, *u.BannedUntil)
	require.Len(t, fx.store.notifications, 1)
	assert.Contains(t, fx.store.notifications[0].Message, expected.Format("2006-01-02"))
}

func TestProcessNoShowsAccumulatesWithinOneSweep(t *testing.T) {
	fx := newViolationFixture(nil)
	fx.users.users[1].ViolationCount = 1
	fx.addReservation(1, 1, fx.now.Add(-90*time.Minute))
	fx.addReservation(2, 1, fx.now.Add(-30*time.Minute))

	require.NoError(t, fx.engine.ProcessNoShows(context.Background()))

	// The second no-show sees the first already counted; the student
	// crosses the threshold inside one batch.
	u := fx.users.users[1]
	assert.Equal(t, 3, u.ViolationCount)
	assert.NotNil(t, u.BannedUntil)
}

func TestProcessNoShowsSkippedRowDoesNotCount(t *testing.T) {
	fx := newViolationFixture(nil)
	fx.addReservation(1, 1, fx.now.Add(-90*time.Minute))
	fx.addReservation(2, 1, fx.now.Add(-30*time.Minute))
	// The student checks in to the first reservation after the sweep
	// read it; only the second may be penalized.
	fx.store.afterOverdue = func() {
		fx.store.reservations[0].Status = model.ReservationCheckedIn
	}

	require.NoError(t, fx.engine.ProcessNoShows(context.Background()))

	assert.Equal(t, model.ReservationCheckedIn, fx.store.reservations[0].Status)
	assert.Equal(t, model.ReservationNoShow, fx.store.reservations[1].Status)
	assert.Equal(t, 1, fx.users.users[1].ViolationCount)
	assert.Len(t, fx.store.notifications, 1)
}

func TestProcessNoShowsCustomThreshold(t *testing.T) {
	fx := newViolationFixture(map[string]int{
		model.SettingMaxViolationCount: 2,
		model.SettingBanDays:           3,
	})
	fx.users.users[1].ViolationCount = 1
	fx.addReservation(1, 1, fx.now.Add(-30*time.Minute))

	require.NoError(t, fx.engine.ProcessNoShows(context.Background()))

	u := fx.users.users[1]
	require.NotNil(t, u.BannedUntil)
	assert.Equal(t, fx.now.AddDate(0, 0, 3), *u.BannedUntil)
}

func TestProcessNoShowsPublishesEvents(t *testing.T) {
	fx := newViolationFixture(nil)
	fx.addReservation(1, 1, fx.now.Add(-30*time.Minute))
	fx.addReservation(2, 2, fx.now.Add(-30*time.Minute))

	require.NoError(t, fx.engine.ProcessNoShows(context.Background()))

	require.Len(t, fx.publisher.events, 2)
	assert.Equal(t, uint64(1), fx.publisher.events[0].ReservationID)
	assert.Equal(t, 1, fx.publisher.events[0].ViolationCount)
	assert.Empty(t, fx.publisher.events[0].BannedUntil)
}

func TestSweepRunsBothPhases(t *testing.T) {
	fx := newViolationFixture(nil)
	fx.addReservation(1, 1, fx.now.Add(10*time.Minute))
	fx.addReservation(2, 2, fx.now.Add(-30*time.Minute))

	require.NoError(t, fx.engine.Sweep(context.Background()))

	assert.Len(t, fx.store.notifications, 2)
	assert.Equal(t, model.ReservationNoShow, fx.store.reservations[1].Status)
	assert.True(t, fx.store.reservations[0].ReminderSent)
}
